package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"itp-scheduler/config"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/metrics"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type notifierFunc func(ctx context.Context, kind NotificationKind, a *entity.Appointment, extra datatypes.JSONMap) (bool, error)

func (f notifierFunc) Notify(ctx context.Context, kind NotificationKind, a *entity.Appointment, extra datatypes.JSONMap) (bool, error) {
	return f(ctx, kind, a, extra)
}

type capturePublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, body)
	return nil
}

func testAppointment() *entity.Appointment {
	return &entity.Appointment{
		ID:               uuid.New(),
		ConfirmationCode: "ABC234",
		ApprovalToken:    "tok123",
		AppointmentDate:  time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC),
		StartTime:        "09:00",
		EndTime:          "09:30",
		Status:           entity.AppointmentStatusPending,
		ServiceType:      entity.ServiceTypeITP,
		ClientName:       "Ion Popescu",
		ClientPhone:      "0722123456",
		VehiclePlate:     "B123ABC",
		Client:           &entity.Client{Name: "Ion Popescu"},
	}
}

func TestNotificationKind_RoutingKey(t *testing.T) {
	require.Equal(t, "notification.approval_request", NotificationApprovalRequest.RoutingKey())
	require.Equal(t, "notification.result_pass", NotificationResultPass.RoutingKey())
	require.Equal(t, "notification.confirmed", NotificationConfirmed.RoutingKey())
	require.Equal(t, "notification.expiring_soon", NotificationExpiringSoon.RoutingKey())
}

func TestQueueNotifier_ApprovalLinks(t *testing.T) {
	pub := &capturePublisher{}
	n := NewQueueNotifier(pub, config.NotificationConfig{OwnerPhone: "0700000000"}, "https://itp.example.ro/")

	delivered, err := n.Notify(context.Background(), NotificationApprovalRequest, testAppointment(), nil)
	require.NoError(t, err)
	require.True(t, delivered)
	require.Equal(t, []string{"notification.approval_request"}, pub.keys)

	var msg NotificationMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	require.Equal(t, NotificationApprovalRequest, msg.Kind)
	require.Equal(t, "https://itp.example.ro/api/v1/approval/tok123/approve", msg.ApproveURL)
	require.Equal(t, "https://itp.example.ro/api/v1/approval/tok123/reject", msg.RejectURL)
	require.Equal(t, "0700000000", msg.OwnerPhone)
	require.Equal(t, "2030-03-04", msg.Appointment.Date)
	require.Equal(t, "ABC234", msg.Appointment.ConfirmationCode)
}

func TestQueueNotifier_NoLinksForOtherKinds(t *testing.T) {
	pub := &capturePublisher{}
	n := NewQueueNotifier(pub, config.NotificationConfig{}, "https://itp.example.ro")

	_, err := n.Notify(context.Background(), NotificationConfirmed, testAppointment(), datatypes.JSONMap{"k": "v"})
	require.NoError(t, err)

	var msg NotificationMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	require.Empty(t, msg.ApproveURL)
	require.Equal(t, "v", msg.Extra["k"])
}

func TestQueueNotifier_PublishError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("channel closed")}
	n := NewQueueNotifier(pub, config.NotificationConfig{}, "")

	delivered, err := n.Notify(context.Background(), NotificationConfirmed, testAppointment(), nil)
	require.Error(t, err)
	require.False(t, delivered)
}

func TestDispatcher_DeliversSnapshot(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []*entity.Appointment
	)
	d := NewDispatcher(notifierFunc(func(_ context.Context, _ NotificationKind, a *entity.Appointment, _ datatypes.JSONMap) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, a)
		return true, nil
	}), quietLogger(), metrics.New(), time.Second)

	a := testAppointment()
	d.Dispatch(NotificationConfirmed, a, nil)
	a.Status = entity.AppointmentStatusCancelled
	d.Wait()

	require.Len(t, seen, 1)
	require.Equal(t, entity.AppointmentStatusPending, seen[0].Status)
	require.Nil(t, seen[0].Client)
}

func TestDispatcher_SurvivesFailureAndPanic(t *testing.T) {
	calls := make(chan NotificationKind, 2)
	d := NewDispatcher(notifierFunc(func(_ context.Context, kind NotificationKind, _ *entity.Appointment, _ datatypes.JSONMap) (bool, error) {
		calls <- kind
		if kind == NotificationResultFail {
			panic("boom")
		}
		return false, errors.New("sms gateway down")
	}), quietLogger(), metrics.New(), time.Second)

	d.Dispatch(NotificationConfirmed, testAppointment(), nil)
	d.Dispatch(NotificationResultFail, testAppointment(), nil)
	d.Wait()
	require.Len(t, calls, 2)
}

func TestDispatcher_StopDropsNewWork(t *testing.T) {
	called := make(chan struct{}, 1)
	d := NewDispatcher(notifierFunc(func(context.Context, NotificationKind, *entity.Appointment, datatypes.JSONMap) (bool, error) {
		called <- struct{}{}
		return true, nil
	}), quietLogger(), metrics.New(), time.Second)

	d.Stop()
	d.Dispatch(NotificationConfirmed, testAppointment(), nil)
	d.Wait()
	d.Stop()
	require.Empty(t, called)
}

package usecase

import (
	"context"
	"sync"
	"testing"

	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/service"

	"github.com/stretchr/testify/require"
)

func TestApproval_ApproveIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.book(t, futureMonday(1), "09:00")
	token := env.approvalToken(t, a.ID)

	first, err := env.approval.Approve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, dto.ApprovalOutcomeApproved, first.Outcome)
	require.Equal(t, string(entity.AppointmentStatusConfirmed), first.Status)

	second, err := env.approval.Approve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, dto.ApprovalOutcomeAlreadyProcessed, second.Outcome)
	require.Equal(t, string(entity.AppointmentStatusConfirmed), second.Status)

	rejectAfter, err := env.approval.Reject(ctx, token, "")
	require.NoError(t, err)
	require.Equal(t, dto.ApprovalOutcomeAlreadyProcessed, rejectAfter.Outcome)

	env.dispatcher.Wait()
	require.Len(t, env.notifier.ofKind(service.NotificationConfirmed), 1)
	require.Empty(t, env.notifier.ofKind(service.NotificationRejected))

	var clients int64
	require.NoError(t, env.db.Model(&entity.Client{}).Count(&clients).Error)
	require.EqualValues(t, 1, clients)

	history, err := env.appointments.History(ctx, a.ID)
	require.NoError(t, err)
	last := history.Logs[len(history.Logs)-1]
	require.Equal(t, entity.AuditActionAppointmentConfirm, last.Action)
	require.Equal(t, ApprovalActor, last.Actor)
}

func TestApproval_Reject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.book(t, futureMonday(1), "09:00")

	result, err := env.approval.Reject(ctx, env.approvalToken(t, a.ID), "")
	require.NoError(t, err)
	require.Equal(t, dto.ApprovalOutcomeRejected, result.Outcome)
	require.Equal(t, string(entity.AppointmentStatusCancelled), result.Status)
	require.Equal(t, defaultRejectReason, result.Appointment.CancelReason)

	env.dispatcher.Wait()
	require.Len(t, env.notifier.ofKind(service.NotificationRejected), 1)
}

func TestApproval_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.approval.Approve(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = env.approval.Approve(ctx, "deadbeef")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = env.approval.Reject(ctx, "  ", "x")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestApproval_ConcurrentClicks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.book(t, futureMonday(1), "09:00")
	token := env.approvalToken(t, a.ID)

	const clicks = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[string]int{}
		failures []error
	)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := env.approval.Approve(ctx, token)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			outcomes[result.Outcome]++
		}()
	}
	wg.Wait()

	require.Empty(t, failures)
	require.Equal(t, 1, outcomes[dto.ApprovalOutcomeApproved])
	require.Equal(t, clicks-1, outcomes[dto.ApprovalOutcomeAlreadyProcessed])

	env.dispatcher.Wait()
	require.Len(t, env.notifier.ofKind(service.NotificationConfirmed), 1)
}

func TestApproval_StaffWinsBetweenLookupAndConfirm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.book(t, futureMonday(1), "09:00")
	token := env.approvalToken(t, a.ID)

	u := env.approval.(*approvalUsecase)
	result, err := u.redeem(ctx, token, dto.ApprovalOutcomeApproved, func(ctx context.Context, pending *entity.Appointment) (*dto.AppointmentResponse, error) {
		// Staff confirms after the link was looked up but before it applies.
		_, err := env.lifecycle.Confirm(context.Background(), pending.ID)
		require.NoError(t, err)
		return env.lifecycle.Confirm(ctx, pending.ID)
	})
	require.NoError(t, err)
	require.Equal(t, dto.ApprovalOutcomeAlreadyProcessed, result.Outcome)
	require.Equal(t, string(entity.AppointmentStatusConfirmed), result.Status)
}

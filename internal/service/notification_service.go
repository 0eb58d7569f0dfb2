package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"itp-scheduler/config"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/metrics"
	"itp-scheduler/internal/scheduling"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// =============================================================================
// Kinds
// =============================================================================

type NotificationKind string

const (
	NotificationApprovalRequest NotificationKind = "ApprovalRequest"
	NotificationConfirmed       NotificationKind = "Confirmed"
	NotificationResultPass      NotificationKind = "ResultPass"
	NotificationResultFail      NotificationKind = "ResultFail"
	NotificationRejected        NotificationKind = "Rejected"
	NotificationExpiringSoon    NotificationKind = "ExpiringSoon"
)

// RoutingKey is the topic routing key of the kind, e.g. "notification.result_pass".
func (k NotificationKind) RoutingKey() string {
	var b strings.Builder
	for i, r := range string(k) {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return "notification." + b.String()
}

// =============================================================================
// Notifier
// =============================================================================

// Notifier delivers one notification. delivered=false with a nil error means
// the transport accepted nothing to do (for instance no recipient).
type Notifier interface {
	Notify(ctx context.Context, kind NotificationKind, appointment *entity.Appointment, extra datatypes.JSONMap) (bool, error)
}

// Publisher is the message transport the queue notifier writes to.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// NotificationMessage is the payload handed to the delivery workers.
type NotificationMessage struct {
	ID          string              `json:"id"`
	Kind        NotificationKind    `json:"kind"`
	Appointment AppointmentSnapshot `json:"appointment"`
	ApproveURL  string              `json:"approve_url,omitempty"`
	RejectURL   string              `json:"reject_url,omitempty"`
	OwnerPhone  string              `json:"owner_phone,omitempty"`
	AdminEmail  string              `json:"admin_email,omitempty"`
	Extra       datatypes.JSONMap   `json:"extra,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AppointmentSnapshot is what recipients see of an appointment.
type AppointmentSnapshot struct {
	ID               uuid.UUID                `json:"id"`
	ConfirmationCode string                   `json:"confirmation_code"`
	Date             string                   `json:"date"`
	StartTime        string                   `json:"start_time"`
	EndTime          string                   `json:"end_time"`
	Status           entity.AppointmentStatus `json:"status"`
	ServiceType      entity.ServiceType       `json:"service_type"`
	ClientName       string                   `json:"client_name"`
	ClientPhone      string                   `json:"client_phone"`
	ClientEmail      string                   `json:"client_email,omitempty"`
	VehiclePlate     string                   `json:"vehicle_plate"`
	ITPResult        *entity.ITPResult        `json:"itp_result,omitempty"`
	CancelReason     string                   `json:"cancel_reason,omitempty"`
}

func NewAppointmentSnapshot(a *entity.Appointment) AppointmentSnapshot {
	return AppointmentSnapshot{
		ID:               a.ID,
		ConfirmationCode: a.ConfirmationCode,
		Date:             a.AppointmentDate.Format(scheduling.DateLayout),
		StartTime:        a.StartTime,
		EndTime:          a.EndTime,
		Status:           a.Status,
		ServiceType:      a.ServiceType,
		ClientName:       a.ClientName,
		ClientPhone:      a.ClientPhone,
		ClientEmail:      a.ClientEmail,
		VehiclePlate:     a.VehiclePlate,
		ITPResult:        a.ITPResult,
		CancelReason:     a.CancelReason,
	}
}

// messageBuilder fills the station-wide fields of every message.
type messageBuilder struct {
	cfg     config.NotificationConfig
	baseURL string
}

func (b messageBuilder) build(kind NotificationKind, a *entity.Appointment, extra datatypes.JSONMap) NotificationMessage {
	msg := NotificationMessage{
		ID:          uuid.New().String(),
		Kind:        kind,
		Appointment: NewAppointmentSnapshot(a),
		OwnerPhone:  b.cfg.OwnerPhone,
		AdminEmail:  b.cfg.AdminEmail,
		Extra:       extra,
		CreatedAt:   time.Now().UTC(),
	}
	if kind == NotificationApprovalRequest && a.ApprovalToken != "" {
		base := strings.TrimRight(b.baseURL, "/")
		msg.ApproveURL = fmt.Sprintf("%s/api/v1/approval/%s/approve", base, a.ApprovalToken)
		msg.RejectURL = fmt.Sprintf("%s/api/v1/approval/%s/reject", base, a.ApprovalToken)
	}
	return msg
}

// queueNotifier publishes notifications to the message broker.
type queueNotifier struct {
	publisher Publisher
	builder   messageBuilder
}

func NewQueueNotifier(publisher Publisher, cfg config.NotificationConfig, publicBaseURL string) Notifier {
	return &queueNotifier{
		publisher: publisher,
		builder:   messageBuilder{cfg: cfg, baseURL: publicBaseURL},
	}
}

func (n *queueNotifier) Notify(ctx context.Context, kind NotificationKind, appointment *entity.Appointment, extra datatypes.JSONMap) (bool, error) {
	body, err := json.Marshal(n.builder.build(kind, appointment, extra))
	if err != nil {
		return false, fmt.Errorf("encode notification: %w", err)
	}
	if err := n.publisher.Publish(ctx, kind.RoutingKey(), body); err != nil {
		return false, fmt.Errorf("publish %s: %w", kind.RoutingKey(), err)
	}
	return true, nil
}

// logNotifier writes notifications to the log when no broker is configured.
type logNotifier struct {
	log     *logrus.Logger
	builder messageBuilder
}

func NewLogNotifier(log *logrus.Logger, cfg config.NotificationConfig, publicBaseURL string) Notifier {
	return &logNotifier{
		log:     log,
		builder: messageBuilder{cfg: cfg, baseURL: publicBaseURL},
	}
}

func (n *logNotifier) Notify(ctx context.Context, kind NotificationKind, appointment *entity.Appointment, extra datatypes.JSONMap) (bool, error) {
	msg := n.builder.build(kind, appointment, extra)
	n.log.WithFields(logrus.Fields{
		"kind":              msg.Kind,
		"appointment_id":    msg.Appointment.ID,
		"confirmation_code": msg.Appointment.ConfirmationCode,
		"client_phone":      msg.Appointment.ClientPhone,
		"approve_url":       msg.ApproveURL,
		"reject_url":        msg.RejectURL,
	}).Info("Notification (log transport)")
	return true, nil
}

// =============================================================================
// Dispatcher
// =============================================================================

// Dispatcher sends notifications in the background after the state change
// that caused them has committed. Failures are logged and counted, never
// returned to the caller.
type Dispatcher struct {
	notifier Notifier
	log      *logrus.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration

	mu      sync.RWMutex // orders wg.Add against Stop
	wg      sync.WaitGroup
	stopped bool
}

func NewDispatcher(notifier Notifier, log *logrus.Logger, m *metrics.Metrics, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifier: notifier,
		log:      log,
		metrics:  m,
		timeout:  timeout,
	}
}

// Dispatch snapshots appointment and returns immediately.
func (d *Dispatcher) Dispatch(kind NotificationKind, appointment *entity.Appointment, extra datatypes.JSONMap) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.log.Warnf("Dispatcher stopped, dropping %s notification for appointment %s", kind, appointment.ID)
		d.metrics.ObserveNotification(string(kind), metrics.ResultRejected)
		return
	}

	snapshot := *appointment
	snapshot.Client = nil
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(kind, &snapshot, extra)
	}()
}

func (d *Dispatcher) send(kind NotificationKind, appointment *entity.Appointment, extra datatypes.JSONMap) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("Notifier panicked for %s: %v", kind, r)
			d.metrics.ObserveNotification(string(kind), metrics.ResultFailure)
		}
	}()

	delivered, err := d.notifier.Notify(ctx, kind, appointment, extra)
	if err != nil {
		d.log.Warnf("Failed to send %s notification for appointment %s: %+v", kind, appointment.ID, err)
		d.metrics.ObserveNotification(string(kind), metrics.ResultFailure)
		return
	}
	if !delivered {
		d.log.Debugf("Notification %s for appointment %s not delivered", kind, appointment.ID)
		d.metrics.ObserveNotification(string(kind), metrics.ResultRejected)
		return
	}
	d.metrics.ObserveNotification(string(kind), metrics.ResultSuccess)
}

// Wait blocks until every dispatched notification finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stop rejects new notifications and drains in-flight ones.
// Safe to call multiple times.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	already := d.stopped
	d.stopped = true
	d.mu.Unlock()

	if !already {
		d.wg.Wait()
		d.log.Info("Notification dispatcher stopped")
	}
}

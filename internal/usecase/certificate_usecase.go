package usecase

import (
	"context"
	"time"

	"itp-scheduler/config"
	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/domain/repository"
	"itp-scheduler/internal/metrics"
	"itp-scheduler/internal/scheduling"
	"itp-scheduler/internal/service"
	"itp-scheduler/pkg/normalize"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CertificateUsecase interface {
	GetExpiryByPlate(ctx context.Context, plate string) (*dto.CertificateExpiryResponse, error)
	RefreshStatuses(ctx context.Context) (*dto.CertificateSweepResponse, error)
}

type certificateUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	vehicleRepo     repository.VehicleRepository
	documentRepo    repository.DocumentRepository
	dispatcher      *service.Dispatcher
	metrics         *metrics.Metrics
	expiringWindow  int
	clock           stationClock
}

func NewCertificateUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	vehicleRepo repository.VehicleRepository,
	documentRepo repository.DocumentRepository,
	dispatcher *service.Dispatcher,
	m *metrics.Metrics,
	cfg config.SchedulingConfig,
	loc *time.Location,
) CertificateUsecase {
	return &certificateUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		vehicleRepo:     vehicleRepo,
		documentRepo:    documentRepo,
		dispatcher:      dispatcher,
		metrics:         m,
		expiringWindow:  expiringWindowDays(cfg),
		clock:           newStationClock(loc),
	}
}

func expiringWindowDays(cfg config.SchedulingConfig) int {
	if cfg.ExpiringSoonDays <= 0 {
		return 30
	}
	return cfg.ExpiringSoonDays
}

// GetExpiryByPlate answers from the current certificate when there is one,
// otherwise estimates from the latest passed inspection.
func (u *certificateUsecase) GetExpiryByPlate(ctx context.Context, plate string) (*dto.CertificateExpiryResponse, error) {
	plate = normalize.Plate(plate)
	if plate == "" {
		return nil, validationError("plate has no letters or digits")
	}
	db := u.db.WithContext(ctx)
	today := u.clock.today()

	vehicle, err := u.vehicleRepo.FindByPlate(db, plate)
	if err != nil {
		u.log.Warnf("Failed to find vehicle by plate: %+v", err)
		return nil, err
	}
	if vehicle != nil {
		doc, err := u.documentRepo.FindCurrent(db, vehicle.ID, entity.DocumentTypeITP)
		if err != nil {
			u.log.Warnf("Failed to find certificate for vehicle %s: %+v", vehicle.ID, err)
			return nil, err
		}
		if doc != nil {
			id := doc.ID
			return &dto.CertificateExpiryResponse{
				Plate:         plate,
				Source:        dto.ExpirySourceCertificate,
				CertificateID: &id,
				IssueDate:     doc.IssueDate.Format(scheduling.DateLayout),
				ExpiryDate:    doc.ExpiryDate.Format(scheduling.DateLayout),
				Status:        string(classifyCertificate(doc.ExpiryDate, today, u.expiringWindow)),
				DaysRemaining: daysBetween(today, doc.ExpiryDate),
			}, nil
		}
	}

	last, err := u.appointmentRepo.FindLatestPassedByPlate(db, plate)
	if err != nil {
		u.log.Warnf("Failed to find passed inspection by plate: %+v", err)
		return nil, err
	}
	if last == nil {
		return nil, ErrCertificateNotFound
	}

	issue := scheduling.DateOnly(last.AppointmentDate)
	expiry := appointmentCertificateExpiry(last)
	return &dto.CertificateExpiryResponse{
		Plate:          plate,
		Source:         dto.ExpirySourceEstimated,
		IssueDate:      issue.Format(scheduling.DateLayout),
		ExpiryDate:     expiry.Format(scheduling.DateLayout),
		Status:         string(classifyCertificate(expiry, today, u.expiringWindow)),
		ValidityMonths: appointmentValidityMonths(last),
		DaysRemaining:  daysBetween(today, expiry),
	}, nil
}

// RefreshStatuses recomputes ACTIVE / EXPIRING_SOON / EXPIRED for every
// certificate that was not renewed, and notifies owners of the ones that
// just entered the expiring window.
func (u *certificateUsecase) RefreshStatuses(ctx context.Context) (*dto.CertificateSweepResponse, error) {
	db := u.db.WithContext(ctx)
	today := u.clock.today()

	docs, err := u.documentRepo.FindNotRenewed(db, entity.DocumentTypeITP)
	if err != nil {
		u.log.Warnf("Failed to find certificates: %+v", err)
		return nil, err
	}

	result := &dto.CertificateSweepResponse{Checked: len(docs)}
	for i := range docs {
		doc := &docs[i]
		status := classifyCertificate(doc.ExpiryDate, today, u.expiringWindow)

		switch status {
		case entity.DocumentStatusActive:
			result.Active++
		case entity.DocumentStatusExpiringSoon:
			result.ExpiringSoon++
		case entity.DocumentStatusExpired:
			result.Expired++
		}

		if status == doc.Status {
			continue
		}
		if err := u.documentRepo.UpdateStatus(db, doc.ID, status); err != nil {
			u.log.Warnf("Failed to update certificate %s status: %+v", doc.ID, err)
			return nil, err
		}
		result.Changed++
		u.metrics.ObserveCertificateStatus(string(status))

		if status == entity.DocumentStatusExpiringSoon && u.notifyExpiringSoon(ctx, doc) {
			result.Notified++
		}
	}

	u.log.Infof("Certificate sweep: checked=%d changed=%d expiring_soon=%d expired=%d notified=%d",
		result.Checked, result.Changed, result.ExpiringSoon, result.Expired, result.Notified)
	return result, nil
}

// notifyExpiringSoon addresses the notice through the appointment that
// produced the certificate, or the vehicle's latest passed inspection.
func (u *certificateUsecase) notifyExpiringSoon(ctx context.Context, doc *entity.Document) bool {
	db := u.db.WithContext(ctx)

	var (
		appointment *entity.Appointment
		err         error
	)
	if doc.AppointmentID != nil {
		appointment, err = u.appointmentRepo.FindByID(db, *doc.AppointmentID)
	}
	if err == nil && appointment == nil && doc.Vehicle != nil {
		appointment, err = u.appointmentRepo.FindLatestPassedByPlate(db, doc.Vehicle.Plate)
	}
	if err != nil {
		u.log.Warnf("Failed to find appointment for certificate %s: %+v", doc.ID, err)
		return false
	}
	if appointment == nil {
		u.log.Debugf("No contact for expiring certificate %s, skipping notification", doc.ID)
		return false
	}

	u.dispatcher.Dispatch(service.NotificationExpiringSoon, appointment, datatypes.JSONMap{
		"certificate_id": doc.ID.String(),
		"expiry_date":    doc.ExpiryDate.Format(scheduling.DateLayout),
	})
	return true
}

// =============================================================================
// Issuance
// =============================================================================

// certificateIssuer issues ITP certificates as a side effect of a passing
// inspection, inside the transition's transaction.
type certificateIssuer struct {
	log            *logrus.Logger
	documentRepo   repository.DocumentRepository
	resolver       ClientResolver
	auditService   service.AuditService
	expiringWindow int
	clock          stationClock
}

func (c *certificateIssuer) issue(ctx context.Context, tx *gorm.DB, a *entity.Appointment, clientID *uuid.UUID, notes string) (*entity.Document, error) {
	vehicle, err := c.resolver.FindOrCreateVehicle(ctx, tx, vehicleDetailsOf(a), clientID)
	if err != nil {
		return nil, err
	}

	if _, err := c.documentRepo.SupersedePrior(tx, vehicle.ID, entity.DocumentTypeITP); err != nil {
		c.log.Warnf("Failed to supersede certificates of vehicle %s: %+v", vehicle.ID, err)
		return nil, err
	}

	appointmentID := a.ID
	expiry := appointmentCertificateExpiry(a)
	doc := &entity.Document{
		VehicleID:     vehicle.ID,
		AppointmentID: &appointmentID,
		Type:          entity.DocumentTypeITP,
		IssueDate:     scheduling.DateOnly(a.AppointmentDate),
		ExpiryDate:    expiry,
		Status:        classifyCertificate(expiry, c.clock.today(), c.expiringWindow),
		Notes:         notes,
	}
	if err := c.documentRepo.Create(tx, doc); err != nil {
		c.log.Warnf("Failed to issue certificate for vehicle %s: %+v", vehicle.ID, err)
		return nil, err
	}

	err = c.auditService.LogCreate(ctx, tx, &appointmentID, entity.AuditActionCertificateIssue, map[string]interface{}{
		"certificate_id":  doc.ID,
		"vehicle_id":      vehicle.ID,
		"plate":           vehicle.Plate,
		"issue_date":      doc.IssueDate.Format(scheduling.DateLayout),
		"expiry_date":     doc.ExpiryDate.Format(scheduling.DateLayout),
		"validity_months": appointmentValidityMonths(a),
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// appointmentCertificateExpiry is the single place mapping an inspection to
// its certificate expiry, shared by issuance and the fallback estimate.
func appointmentCertificateExpiry(a *entity.Appointment) time.Time {
	return scheduling.CertificateExpiry(a.AppointmentDate, appointmentCategory(a), a.VehicleYear, a.VehicleSpecialUse)
}

func appointmentValidityMonths(a *entity.Appointment) int {
	age := scheduling.VehicleAge(a.VehicleYear, a.AppointmentDate.Year())
	return scheduling.ValidityMonths(appointmentCategory(a), age, a.VehicleSpecialUse)
}

func appointmentCategory(a *entity.Appointment) scheduling.VehicleCategory {
	if a.VehicleCategory == "" {
		return scheduling.CategoryPassengerCar
	}
	return scheduling.VehicleCategory(a.VehicleCategory)
}

func classifyCertificate(expiry, today time.Time, windowDays int) entity.DocumentStatus {
	expiry = scheduling.DateOnly(expiry)
	switch {
	case expiry.Before(today):
		return entity.DocumentStatusExpired
	case !expiry.After(today.AddDate(0, 0, windowDays)):
		return entity.DocumentStatusExpiringSoon
	default:
		return entity.DocumentStatusActive
	}
}

func daysBetween(from, to time.Time) int {
	return int(scheduling.DateOnly(to).Sub(scheduling.DateOnly(from)).Hours() / 24)
}

package dto

import "github.com/google/uuid"

const (
	ExpirySourceCertificate = "certificate"
	ExpirySourceEstimated   = "estimated"
)

type CertificateExpiryResponse struct {
	Plate          string     `json:"plate"`
	Source         string     `json:"source"` // certificate or estimated
	CertificateID  *uuid.UUID `json:"certificate_id,omitempty"`
	IssueDate      string     `json:"issue_date"`
	ExpiryDate     string     `json:"expiry_date"`
	Status         string     `json:"status"`
	ValidityMonths int        `json:"validity_months,omitempty"`
	DaysRemaining  int        `json:"days_remaining"`
}

type CertificateSweepResponse struct {
	Checked      int `json:"checked"`
	Active       int `json:"active"`
	ExpiringSoon int `json:"expiring_soon"`
	Expired      int `json:"expired"`
	Changed      int `json:"changed"`
	Notified     int `json:"notified"`
}

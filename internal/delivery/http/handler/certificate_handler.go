package handler

import (
	"net/http"
	"strings"

	"itp-scheduler/internal/usecase"
	"itp-scheduler/pkg/response"
)

type CertificateHandler struct {
	certificateUsecase usecase.CertificateUsecase
}

func NewCertificateHandler(certificateUsecase usecase.CertificateUsecase) *CertificateHandler {
	return &CertificateHandler{
		certificateUsecase: certificateUsecase,
	}
}

func (h *CertificateHandler) GetExpiry(w http.ResponseWriter, r *http.Request) {
	plate := strings.TrimSpace(r.URL.Query().Get("plate"))
	if plate == "" {
		response.BadRequest(w, "plate is required", nil)
		return
	}

	expiry, err := h.certificateUsecase.GetExpiryByPlate(r.Context(), plate)
	if err != nil {
		writeUsecaseError(w, err, "Failed to get certificate expiry")
		return
	}

	response.Success(w, http.StatusOK, "Certificate expiry retrieved successfully", expiry)
}

// RefreshStatuses runs the certificate status sweep on demand.
func (h *CertificateHandler) RefreshStatuses(w http.ResponseWriter, r *http.Request) {
	summary, err := h.certificateUsecase.RefreshStatuses(r.Context())
	if err != nil {
		writeUsecaseError(w, err, "Failed to refresh certificate statuses")
		return
	}

	response.Success(w, http.StatusOK, "Certificate statuses refreshed", summary)
}

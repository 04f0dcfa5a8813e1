package records

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pulsecare/portal-api/internal/http/middleware"
	"github.com/pulsecare/portal-api/pkg/logging"
)

const defaultListLimit = 20

// Handler wires HTTP requests to the medical records repository.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// CreateRecordRequest mirrors the upload form: a flat shape keyed by
// record_type, converted into the tagged record on the way in.
type CreateRecordRequest struct {
	UserID           string     `json:"user_id,omitempty"`
	RecordType       RecordType `json:"record_type"`
	Date             string     `json:"date"`
	DoctorName       string     `json:"doctor_name,omitempty"`
	TestName         string     `json:"test_name,omitempty"`
	TestCategory     string     `json:"test_category,omitempty"`
	TestResults      ResultSet  `json:"test_results,omitempty"`
	PrescriptionText string     `json:"prescription_text,omitempty"`
	FileURL          string     `json:"file_url,omitempty"`
}

// List handles GET /api/records.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	recs, err := h.repo.ListRecent(r.Context(), claims.UserID(), limit)
	if err != nil {
		h.logger.Error("failed to list records", "error", err, "user_id", claims.UserID())
		http.Error(w, "Failed to list records", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

// Create handles POST /api/records. Patients upload their own records;
// doctors may upload on behalf of a patient by setting user_id.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode create record request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec := MedicalRecord{
		UserID:     claims.UserID(),
		Type:       req.RecordType,
		Date:       req.Date,
		FileURL:    req.FileURL,
		UploadedBy: claims.Role,
	}
	if claims.Role == middleware.RoleDoctor && req.UserID != "" {
		rec.UserID = req.UserID
	}

	switch req.RecordType {
	case RecordTypeLabTest:
		rec.LabTest = &LabTest{
			Name:     req.TestName,
			Category: req.TestCategory,
			Results:  req.TestResults,
		}
	case RecordTypePrescription:
		rec.Prescription = &Prescription{
			DoctorName: req.DoctorName,
			Text:       req.PrescriptionText,
		}
	}

	if err := rec.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Create(r.Context(), &rec); err != nil {
		h.logger.Error("failed to create record", "error", err, "user_id", rec.UserID)
		http.Error(w, "Failed to create record", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

// Get handles GET /api/records/{recordID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rec, err := h.repo.Get(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		h.logger.Error("failed to get record", "error", err)
		http.Error(w, "Failed to get record", http.StatusInternalServerError)
		return
	}
	// Doctors review records during appointments; patients only see their own.
	if rec == nil || (rec.UserID != claims.UserID() && claims.Role != middleware.RoleDoctor) {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/records/{recordID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	err := h.repo.Delete(r.Context(), chi.URLParam(r, "recordID"), claims.UserID())
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to delete record", "error", err)
		http.Error(w, "Failed to delete record", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

package profiles

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pulsecare/portal-api/internal/http/middleware"
	"github.com/pulsecare/portal-api/pkg/logging"
)

// Handler wires HTTP requests to the profiles repository.
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

// UpdateProfileRequest carries the settings-form fields. Identity fields
// (id, role, email) come from the token and the existing row, not the body.
type UpdateProfileRequest struct {
	FullName        string `json:"full_name"`
	Specialization  string `json:"specialization,omitempty"`
	HospitalName    string `json:"hospital_name,omitempty"`
	ExperienceYears int    `json:"experience_years,omitempty"`
	Age             int    `json:"age,omitempty"`
	Gender          string `json:"gender,omitempty"`
	IsOnboarded     *bool  `json:"is_onboarded,omitempty"`
}

// Get handles GET /api/profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	profile, err := h.repo.Get(r.Context(), claims.UserID())
	if err != nil {
		h.logger.Error("failed to load profile", "error", err, "user_id", claims.UserID())
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// Update handles PUT /api/profile. A first update creates the row, which is
// how onboarding completes after sign-up.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode profile update", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		http.Error(w, "full_name is required", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.Get(r.Context(), claims.UserID())
	if err != nil {
		h.logger.Error("failed to load profile for update", "error", err, "user_id", claims.UserID())
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	profile := Profile{ID: claims.UserID(), Role: claims.Role}
	if existing != nil {
		profile = *existing
	}
	profile.FullName = req.FullName
	profile.Specialization = req.Specialization
	profile.HospitalName = req.HospitalName
	profile.ExperienceYears = req.ExperienceYears
	profile.Age = req.Age
	profile.Gender = req.Gender
	if req.IsOnboarded != nil {
		profile.IsOnboarded = *req.IsOnboarded
	}

	if err := h.repo.Upsert(r.Context(), &profile); err != nil {
		h.logger.Error("failed to upsert profile", "error", err, "user_id", claims.UserID())
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// ListPatients handles GET /api/patients, the directory the doctor
// dashboard uses for record entry and starting conversations. The route is
// role-guarded in the router.
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.repo.ListByRole(r.Context(), middleware.RolePatient)
	if err != nil {
		h.logger.Error("failed to list patients", "error", err)
		http.Error(w, "Failed to list patients", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

package profiles

import "time"

// Profile is a portal account, shared between patients and doctors. The
// doctor-specific columns stay empty for patients.
type Profile struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	IsOnboarded bool      `json:"is_onboarded"`

	Specialization  string `json:"specialization,omitempty"`
	HospitalName    string `json:"hospital_name,omitempty"`
	ExperienceYears int    `json:"experience_years,omitempty"`

	Age    int    `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

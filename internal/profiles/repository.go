package profiles

import (
	"context"
	"database/sql"
	"time"
)

// Repository persists user profiles in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns a profile by user ID, or nil when none exists yet.
func (r *Repository) Get(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	var specialization, hospitalName, gender sql.NullString
	var experienceYears, age sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, role, full_name, email, is_onboarded, specialization,
		       hospital_name, experience_years, age, gender, created_at, updated_at
		FROM profiles WHERE id = $1`, id).Scan(
		&p.ID, &p.Role, &p.FullName, &p.Email, &p.IsOnboarded, &specialization,
		&hospitalName, &experienceYears, &age, &gender, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Specialization = specialization.String
	p.HospitalName = hospitalName.String
	p.ExperienceYears = int(experienceYears.Int64)
	p.Age = int(age.Int64)
	p.Gender = gender.String
	return &p, nil
}

// ListByRole returns every profile holding the given role, sorted by name.
func (r *Repository) ListByRole(ctx context.Context, role string) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, role, full_name, email, is_onboarded, specialization,
		       hospital_name, experience_years, age, gender, created_at, updated_at
		FROM profiles WHERE role = $1
		ORDER BY full_name ASC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		var p Profile
		var specialization, hospitalName, gender sql.NullString
		var experienceYears, age sql.NullInt64
		if err := rows.Scan(
			&p.ID, &p.Role, &p.FullName, &p.Email, &p.IsOnboarded, &specialization,
			&hospitalName, &experienceYears, &age, &gender, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Specialization = specialization.String
		p.HospitalName = hospitalName.String
		p.ExperienceYears = int(experienceYears.Int64)
		p.Age = int(age.Int64)
		p.Gender = gender.String
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Upsert creates or updates a profile.
func (r *Repository) Upsert(ctx context.Context, p *Profile) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, role, full_name, email, is_onboarded, specialization,
		    hospital_name, experience_years, age, gender, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
		ON CONFLICT (id) DO UPDATE SET
		    role=EXCLUDED.role, full_name=EXCLUDED.full_name, email=EXCLUDED.email,
		    is_onboarded=EXCLUDED.is_onboarded, specialization=EXCLUDED.specialization,
		    hospital_name=EXCLUDED.hospital_name, experience_years=EXCLUDED.experience_years,
		    age=EXCLUDED.age, gender=EXCLUDED.gender, updated_at=$11`,
		p.ID, p.Role, p.FullName, p.Email, p.IsOnboarded,
		nullString(p.Specialization), nullString(p.HospitalName),
		nullInt(p.ExperienceYears), nullInt(p.Age), nullString(p.Gender), now)
	if err == nil {
		p.UpdatedAt = now
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

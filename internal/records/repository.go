package records

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository persists medical records in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, user_id, record_type, date::text, doctor_name, test_name,
	       test_category, test_results, prescription_text, file_url, uploaded_by, created_at`

// ListRecent returns up to limit records for the user, newest first.
// created_at breaks date ties so the ordering is stable across calls.
func (r *Repository) ListRecent(ctx context.Context, userID string, limit int) ([]MedicalRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM medical_records WHERE user_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MedicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if out == nil {
		out = []MedicalRecord{}
	}
	return out, rows.Err()
}

// Get returns a single record by ID, or nil when it does not exist.
func (r *Repository) Get(ctx context.Context, id string) (*MedicalRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM medical_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Create inserts a new record, assigning an ID when the caller left it empty.
func (r *Repository) Create(ctx context.Context, rec *MedicalRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var doctorName, testName, testCategory, prescriptionText sql.NullString
	var results ResultSet
	if lab := rec.LabTest; lab != nil {
		testName = nullable(lab.Name)
		testCategory = nullable(lab.Category)
		results = lab.Results
	}
	if rx := rec.Prescription; rx != nil {
		doctorName = nullable(rx.DoctorName)
		prescriptionText = nullable(rx.Text)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medical_records (id, user_id, record_type, date, doctor_name, test_name,
		    test_category, test_results, prescription_text, file_url, uploaded_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rec.ID, rec.UserID, string(rec.Type), rec.Date, doctorName, testName,
		testCategory, results, prescriptionText, nullable(rec.FileURL),
		nullable(rec.UploadedBy), rec.CreatedAt)
	return err
}

// Delete removes a record owned by userID. Returns sql.ErrNoRows when the
// record does not exist or belongs to someone else.
func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM medical_records WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns how many records a user has stored.
func (r *Repository) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM medical_records WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*MedicalRecord, error) {
	var rec MedicalRecord
	var recordType string
	var doctorName, testName, testCategory, prescriptionText, fileURL, uploadedBy sql.NullString
	var results ResultSet

	if err := row.Scan(&rec.ID, &rec.UserID, &recordType, &rec.Date, &doctorName,
		&testName, &testCategory, &results, &prescriptionText, &fileURL,
		&uploadedBy, &rec.CreatedAt); err != nil {
		return nil, err
	}

	rec.Type = RecordType(recordType)
	rec.FileURL = fileURL.String
	rec.UploadedBy = uploadedBy.String

	// Populate exactly the variant the type selects; anything unrecognized
	// carries neither and is dropped downstream during formatting.
	switch rec.Type {
	case RecordTypeLabTest:
		rec.LabTest = &LabTest{
			Name:     testName.String,
			Category: testCategory.String,
			Results:  results,
		}
	case RecordTypePrescription:
		rec.Prescription = &Prescription{
			DoctorName: doctorName.String,
			Text:       prescriptionText.String,
		}
	}
	return &rec, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

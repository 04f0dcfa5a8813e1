package records

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RecordType discriminates which variant of a medical record is populated.
type RecordType string

const (
	RecordTypeLabTest      RecordType = "lab_test"
	RecordTypePrescription RecordType = "prescription"
)

// ResultEntry is a single lab measurement, e.g. {"glucose", 95}.
type ResultEntry struct {
	Key   string
	Value any
}

// ResultSet holds free-form lab measurements with the key order of the
// original JSON object preserved. A nil ResultSet means the record carries
// no structured results. Non-object JSON values decode to nil rather than
// erroring, since uploads are not validated beyond being valid JSON.
type ResultSet []ResultEntry

// UnmarshalJSON decodes a JSON object token-by-token so that key order
// survives the round trip through the database.
func (rs *ResultSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("records: decode results: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		// Tolerate null, strings, arrays: treat as no structured results.
		*rs = nil
		return nil
	}

	out := ResultSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("records: decode results key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("records: results key is not a string")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("records: decode results value: %w", err)
		}
		out = append(out, ResultEntry{Key: key, Value: value})
	}
	*rs = out
	return nil
}

// MarshalJSON re-emits the results as a JSON object in stored order.
func (rs ResultSet) MarshalJSON() ([]byte, error) {
	if rs == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Value implements driver.Valuer so a ResultSet can be written to a jsonb
// column directly.
func (rs ResultSet) Value() (driver.Value, error) {
	if rs == nil {
		return nil, nil
	}
	return json.Marshal(rs)
}

// Scan implements sql.Scanner for jsonb columns.
func (rs *ResultSet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*rs = nil
		return nil
	case []byte:
		return rs.UnmarshalJSON(v)
	case string:
		return rs.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("records: cannot scan %T into ResultSet", src)
	}
}

// LabTest carries the fields that are only meaningful for lab_test records.
type LabTest struct {
	Name     string    `json:"test_name,omitempty"`
	Category string    `json:"test_category,omitempty"`
	Results  ResultSet `json:"test_results,omitempty"`
}

// Prescription carries the fields that are only meaningful for prescription
// records.
type Prescription struct {
	DoctorName string `json:"doctor_name,omitempty"`
	Text       string `json:"prescription_text,omitempty"`
}

// MedicalRecord is one clinical fact about a patient. Exactly one of the
// variant pointers is populated, selected by Type; records with an
// unrecognized type carry neither.
type MedicalRecord struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Type       RecordType `json:"record_type"`
	Date       string     `json:"date"`
	FileURL    string     `json:"file_url,omitempty"`
	UploadedBy string     `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	LabTest      *LabTest      `json:"lab_test,omitempty"`
	Prescription *Prescription `json:"prescription,omitempty"`
}

// Validate checks that the record is well-formed for storage.
func (r *MedicalRecord) Validate() error {
	switch r.Type {
	case RecordTypeLabTest:
		if r.Prescription != nil {
			return errors.New("records: lab_test record must not carry prescription fields")
		}
	case RecordTypePrescription:
		if r.LabTest != nil {
			return errors.New("records: prescription record must not carry lab test fields")
		}
	default:
		return fmt.Errorf("records: unsupported record type %q", r.Type)
	}
	if r.UserID == "" {
		return errors.New("records: user id is required")
	}
	if r.Date == "" {
		return errors.New("records: date is required")
	}
	return nil
}

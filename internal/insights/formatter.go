package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/pulsecare/portal-api/internal/observability/metrics"
	"github.com/pulsecare/portal-api/internal/records"
	"github.com/pulsecare/portal-api/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// recordContextLimit caps how many records feed a single prompt. The prompt
// is token-budgeted downstream, so older records are simply left out.
const recordContextLimit = 10

const (
	recordContextHeader = "\n--- PATIENT MEDICAL RECORDS ---\n"
	recordContextFooter = "\n--- END MEDICAL RECORDS ---\n"
)

// RecordStore is the slice of the records repository the formatter needs.
type RecordStore interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]records.MedicalRecord, error)
}

// ContextBuilder renders a patient's recent medical records into the
// delimited text block that is spliced into the analysis prompt.
type ContextBuilder struct {
	store   RecordStore
	logger  *logging.Logger
	tracer  trace.Tracer
	metrics *metrics.AIMetrics
}

func NewContextBuilder(store RecordStore, logger *logging.Logger) *ContextBuilder {
	if logger == nil {
		logger = logging.Default()
	}
	return &ContextBuilder{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("portal.internal.insights.context"),
	}
}

// WithMetrics attaches pipeline metrics. Returns the builder for chaining.
func (b *ContextBuilder) WithMetrics(m *metrics.AIMetrics) *ContextBuilder {
	b.metrics = m
	return b
}

// Context fetches the user's most recent records and formats them. An empty
// string with a nil error means the user has no usable records. The error
// return lets tests tell "no context" apart from "store errored"; the
// analysis entry point collapses both to an empty context block.
func (b *ContextBuilder) Context(ctx context.Context, userID string) (string, error) {
	ctx, span := b.tracer.Start(ctx, "insights.record_context")
	defer span.End()

	recs, err := b.store.ListRecent(ctx, userID, recordContextLimit)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("insights: list records for context: %w", err)
	}
	b.metrics.ObserveContextRecords(len(recs))
	return BuildRecordContext(recs), nil
}

// BuildRecordContext renders the given records, newest first, into a single
// delimited block. Records of unrecognized type are dropped. Returns an
// empty string when nothing renders.
func BuildRecordContext(recs []records.MedicalRecord) string {
	formatted := make([]string, 0, len(recs))
	for _, rec := range recs {
		if text := formatRecord(rec); text != "" {
			formatted = append(formatted, text)
		}
	}
	if len(formatted) == 0 {
		return ""
	}
	return recordContextHeader + strings.Join(formatted, "\n\n") + recordContextFooter
}

func formatRecord(rec records.MedicalRecord) string {
	switch rec.Type {
	case records.RecordTypeLabTest:
		return formatLabTest(rec)
	case records.RecordTypePrescription:
		return formatPrescription(rec)
	default:
		return ""
	}
}

func formatLabTest(rec records.MedicalRecord) string {
	lab := rec.LabTest
	if lab == nil {
		lab = &records.LabTest{}
	}
	name := lab.Name
	if name == "" {
		name = "Unknown"
	}
	category := lab.Category
	if category == "" {
		category = "General"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Lab Test: %s (%s) - Date: %s", name, category, rec.Date)
	if lab.Results != nil {
		lines := make([]string, 0, len(lab.Results))
		for _, entry := range lab.Results {
			lines = append(lines, fmt.Sprintf("  - %s: %v", entry.Key, entry.Value))
		}
		b.WriteString("\nResults:\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

func formatPrescription(rec records.MedicalRecord) string {
	rx := rec.Prescription
	if rx == nil {
		rx = &records.Prescription{}
	}
	doctor := rx.DoctorName
	if doctor == "" {
		doctor = "Unknown"
	}
	text := rx.Text
	if text == "" {
		text = "No details"
	}
	return fmt.Sprintf("Prescription from Dr. %s - Date: %s\n%s", doctor, rec.Date, text)
}

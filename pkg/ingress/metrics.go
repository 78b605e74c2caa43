// pkg/ingress/metrics.go
package ingress

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// NoDataSentinel is reported for a field whose every value was blank,
// instead of crashing on an empty aggregate
const NoDataSentinel = "no_data"

// FieldStats summarizes one numeric field over its non-blank values
type FieldStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	// NoData is true when every value was blank; Min/Max/Mean are then
	// meaningless and render as the sentinel
	NoData bool `json:"noData"`
}

// RunMetrics aggregates per-run counts for one file invocation. Each run
// owns its metrics instance outright, so no locking is needed: the engine
// is single-threaded by contract and shares nothing mutable.
type RunMetrics struct {
	RunID      string
	Dataset    string
	SourceFile string
	Encoding   string
	StartTime  time.Time
	EndTime    time.Time

	RowsSeen            int
	RowsAccepted        int
	QuarantinedByReason map[model.Reason]int
	FieldStats          map[string]FieldStats

	logger *zap.Logger
}

// NewRunMetrics starts tracking a run
func NewRunMetrics(dataset, sourceFile string, logger *zap.Logger) *RunMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunMetrics{
		RunID:               uuid.NewString(),
		Dataset:             dataset,
		SourceFile:          sourceFile,
		StartTime:           time.Now(),
		QuarantinedByReason: make(map[model.Reason]int),
		FieldStats:          make(map[string]FieldStats),
		logger:              logger,
	}
}

// RecordQuarantine counts one quarantined row by reason
func (m *RunMetrics) RecordQuarantine(reason model.Reason) {
	m.QuarantinedByReason[reason]++
}

// QuarantinedTotal sums quarantined rows across reasons
func (m *RunMetrics) QuarantinedTotal() int {
	total := 0
	for _, n := range m.QuarantinedByReason {
		total += n
	}
	return total
}

// Duration returns elapsed run time
func (m *RunMetrics) Duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// ComputeFieldStats fills per-field statistics over the accepted rows.
// Only non-blank values participate; an all-blank field gets the no-data
// sentinel rather than a division by zero.
func (m *RunMetrics) ComputeFieldStats(records []model.CanonicalRecord, contract *model.SchemaContract) {
	for _, field := range contract.Fields {
		if field.Type != model.FieldNumeric {
			continue
		}
		stats := FieldStats{}
		sum := 0.0
		for _, rec := range records {
			text := rec.Get(field.Name)
			if text == "" {
				continue
			}
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				continue
			}
			if stats.Count == 0 || v < stats.Min {
				stats.Min = v
			}
			if stats.Count == 0 || v > stats.Max {
				stats.Max = v
			}
			sum += v
			stats.Count++
		}
		if stats.Count == 0 {
			stats.NoData = true
		} else {
			stats.Mean = sum / float64(stats.Count)
		}
		m.FieldStats[field.Name] = stats
	}
}

// Complete closes the run and logs a summary
func (m *RunMetrics) Complete() {
	m.EndTime = time.Now()
	m.logger.Info("Parse run complete",
		zap.String("runID", m.RunID),
		zap.String("dataset", m.Dataset),
		zap.String("file", m.SourceFile),
		zap.String("encoding", m.Encoding),
		zap.Int("rowsSeen", m.RowsSeen),
		zap.Int("rowsAccepted", m.RowsAccepted),
		zap.Int("rowsQuarantined", m.QuarantinedTotal()),
		zap.Duration("duration", m.Duration()))
}

// Report renders a human-readable run summary
func (m *RunMetrics) Report() string {
	report := fmt.Sprintf(`
Parse Run Report
================
Run ID:          %s
Dataset:         %s
Source File:     %s
Encoding:        %s
Duration:        %s

Rows
----
Seen:            %d
Accepted:        %d
Quarantined:     %d
`,
		m.RunID, m.Dataset, m.SourceFile, m.Encoding, m.Duration(),
		m.RowsSeen, m.RowsAccepted, m.QuarantinedTotal())

	if len(m.QuarantinedByReason) > 0 {
		report += "\nQuarantine Reasons\n------------------\n"
		reasons := make([]string, 0, len(m.QuarantinedByReason))
		for reason := range m.QuarantinedByReason {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			report += fmt.Sprintf("- %s: %d\n", reason, m.QuarantinedByReason[model.Reason(reason)])
		}
	}

	if len(m.FieldStats) > 0 {
		report += "\nField Statistics\n----------------\n"
		fields := make([]string, 0, len(m.FieldStats))
		for field := range m.FieldStats {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			stats := m.FieldStats[field]
			if stats.NoData {
				report += fmt.Sprintf("- %s: %s\n", field, NoDataSentinel)
				continue
			}
			report += fmt.Sprintf("- %s: n=%d min=%g max=%g mean=%g\n",
				field, stats.Count, stats.Min, stats.Max, stats.Mean)
		}
	}

	return report
}

// ToJSON serializes the metrics for callers that persist run records
func (m *RunMetrics) ToJSON() ([]byte, error) {
	return json.Marshal(struct {
		RunID               string                `json:"runId"`
		Dataset             string                `json:"dataset"`
		SourceFile          string                `json:"sourceFile"`
		Encoding            string                `json:"encoding"`
		Duration            string                `json:"duration"`
		RowsSeen            int                   `json:"rowsSeen"`
		RowsAccepted        int                   `json:"rowsAccepted"`
		RowsQuarantined     int                   `json:"rowsQuarantined"`
		QuarantinedByReason map[model.Reason]int  `json:"quarantinedByReason"`
		FieldStats          map[string]FieldStats `json:"fieldStats"`
	}{
		RunID:               m.RunID,
		Dataset:             m.Dataset,
		SourceFile:          m.SourceFile,
		Encoding:            m.Encoding,
		Duration:            m.Duration().String(),
		RowsSeen:            m.RowsSeen,
		RowsAccepted:        m.RowsAccepted,
		RowsQuarantined:     m.QuarantinedTotal(),
		QuarantinedByReason: m.QuarantinedByReason,
		FieldStats:          m.FieldStats,
	})
}

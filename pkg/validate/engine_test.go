// pkg/validate/engine_test.go
package validate

import (
	"testing"

	"github.com/refdata-io/table-ingress/pkg/model"
)

func fp(v float64) *float64 { return &v }

func bandContract() *model.SchemaContract {
	return &model.SchemaContract{
		Dataset: "county_population",
		Fields: []model.FieldSpec{
			{Name: "county_code", Type: model.FieldIdentifier, NaturalKey: true, InHash: true},
			{
				Name: "population", Type: model.FieldNumeric, InHash: true,
				Range: &model.Band{
					ExpectedMin:  fp(100),
					ExpectedMax:  fp(1_000_000),
					PlausibleMin: fp(0),
					PlausibleMax: fp(50_000_000),
				},
			},
			{Name: "region", Type: model.FieldString, Nullable: true, Domain: []string{"NORTH", "SOUTH", "EAST", "WEST"}},
		},
		Duplicates: model.DuplicateQuarantine,
		RowCount: model.RowCountBand{
			ExpectedMin:  3,
			ExpectedMax:  10,
			PlausibleMin: 1,
			PlausibleMax: 100,
		},
	}
}

func TestCheckRangesTwoThresholds(t *testing.T) {
	e, err := New(bandContract(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name         string
		population   string
		wantFindings int
		wantSeverity model.Severity
	}{
		{name: "inside both bands", population: "59095", wantFindings: 0},
		{name: "below expected warns", population: "42", wantFindings: 1, wantSeverity: model.SeverityWarn},
		{name: "above expected warns", population: "2000000", wantFindings: 1, wantSeverity: model.SeverityWarn},
		{name: "below plausible blocks", population: "-5", wantFindings: 1, wantSeverity: model.SeverityBlock},
		{name: "above plausible blocks", population: "60000000", wantFindings: 1, wantSeverity: model.SeverityBlock},
		{name: "blank skipped", population: "", wantFindings: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := e.CheckRanges(map[string]string{"population": tt.population})
			if len(findings) != tt.wantFindings {
				t.Fatalf("got %d findings, want %d", len(findings), tt.wantFindings)
			}
			if tt.wantFindings == 0 {
				return
			}
			f := findings[0]
			if f.Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", f.Severity, tt.wantSeverity)
			}
			if f.Reason != model.ReasonRangeViolation {
				t.Errorf("reason = %s, want %s", f.Reason, model.ReasonRangeViolation)
			}
			if f.Field != "population" {
				t.Errorf("field = %q, want population", f.Field)
			}
		})
	}
}

func TestCheckCategorical(t *testing.T) {
	e, err := New(bandContract(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw := model.RawRecord{
		Columns: []string{"county_code", "region"},
		Values:  map[string]string{"county_code": "001", "region": "south"},
		Line:    2,
	}
	if findings := e.CheckCategorical(raw); len(findings) != 0 {
		t.Errorf("case-insensitive domain member flagged: %+v", findings)
	}

	raw.Values["region"] = "CENTRAL"
	findings := e.CheckCategorical(raw)
	if len(findings) != 1 {
		t.Fatalf("out-of-domain value produced %d findings, want 1", len(findings))
	}
	if findings[0].Severity != model.SeverityBlock {
		t.Errorf("severity = %s, want BLOCK", findings[0].Severity)
	}
	if findings[0].Value != "CENTRAL" {
		t.Errorf("finding should carry the original value, got %q", findings[0].Value)
	}

	// blank categorical fields are nullability's concern, not the domain's
	raw.Values["region"] = ""
	if findings := e.CheckCategorical(raw); len(findings) != 0 {
		t.Errorf("blank value flagged: %+v", findings)
	}
}

func TestCheckRowCount(t *testing.T) {
	e, err := New(bandContract(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		n            int
		wantNil      bool
		wantSeverity model.Severity
	}{
		{n: 5, wantNil: true},
		{n: 2, wantSeverity: model.SeverityWarn},
		{n: 50, wantSeverity: model.SeverityWarn},
		{n: 0, wantSeverity: model.SeverityBlock},
		{n: 500, wantSeverity: model.SeverityBlock},
	}
	for _, tt := range tests {
		finding := e.CheckRowCount(tt.n)
		if tt.wantNil {
			if finding != nil {
				t.Errorf("CheckRowCount(%d) = %+v, want nil", tt.n, finding)
			}
			continue
		}
		if finding == nil {
			t.Errorf("CheckRowCount(%d) = nil, want %s finding", tt.n, tt.wantSeverity)
			continue
		}
		if finding.Severity != tt.wantSeverity {
			t.Errorf("CheckRowCount(%d) severity = %s, want %s", tt.n, finding.Severity, tt.wantSeverity)
		}
	}
}

func TestCheckRowCountUnboundedMax(t *testing.T) {
	contract := bandContract()
	contract.RowCount = model.RowCountBand{ExpectedMin: 1, PlausibleMin: 1}
	e, err := New(contract, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if finding := e.CheckRowCount(10_000_000); finding != nil {
		t.Errorf("zero max should be unbounded, got %+v", finding)
	}
}

func TestDuplicates(t *testing.T) {
	e, err := New(bandContract(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dups := e.Duplicates([]string{"01|001", "01|003", "01|001", "01|005", "01|001"})
	if len(dups) != 2 {
		t.Fatalf("got %d duplicate indexes, want 2", len(dups))
	}
	if dups[0] != 2 || dups[1] != 4 {
		t.Errorf("duplicate indexes = %v, want [2 4]; first occurrence must be kept", dups)
	}

	if dups := e.Duplicates([]string{"a", "b", "c"}); dups != nil {
		t.Errorf("unique keys flagged: %v", dups)
	}
}

// pkg/resolve/resolver_test.go
package resolve

import (
	"reflect"
	"testing"

	"github.com/refdata-io/table-ingress/pkg/model"
)

const referenceYAML = `
parents:
  ALABAMA: "01"
  GUAM: "66"
  LOUISIANA: "22"
  NEW MEXICO: "35"
children:
  ALABAMA:
    AUTAUGA: "001"
    BALDWIN: "003"
    BARBOUR: "005"
  LOUISIANA:
    JEFFERSON: "051"
    ORLEANS: "071"
    PLAQUEMINES: "075"
    SAINT JOHN THE BAPTIST: "095"
  NEW MEXICO:
    DONA ANA: "013"
aliases:
  ORLEANS TERRITORY: ORLEANS
abbreviations:
  ST: SAINT
exceptions:
  LOUISIANA:
    CITY OF NEW ORLEANS: "071"
  GUAM:
    AGANA: "010"
sentinels:
  - STATEWIDE
  - ALL COUNTIES
`

func loadTestTables(t *testing.T) *Tables {
	t.Helper()
	tables, err := LoadTables([]byte(referenceYAML))
	if err != nil {
		t.Fatalf("LoadTables: %v", err)
	}
	return tables
}

func newTestResolver(t *testing.T, threshold float64) *Resolver {
	t.Helper()
	r, err := NewResolver(loadTestTables(t), threshold, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestSplitNames(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Jefferson, Orleans and Plaquemines", []string{"Jefferson", "Orleans", "Plaquemines"}},
		{"Autauga/Baldwin", []string{"Autauga", "Baldwin"}},
		{"  Autauga  ", []string{"Autauga"}},
		{"Jefferson,, Orleans", []string{"Jefferson", "Orleans"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := SplitNames(tt.input)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitNames(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResolveRowExactMatch(t *testing.T) {
	r := newTestResolver(t, 0)

	resolved, rejected := r.ResolveRow("Alabama", "Autauga", 12)
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejects: %v", rejected)
	}
	if len(resolved) != 1 {
		t.Fatalf("got %d resolved, want 1", len(resolved))
	}

	got := resolved[0]
	if got.ParentCode != "01" {
		t.Errorf("parent code = %q, want 01", got.ParentCode)
	}
	if got.Match.Code != "001" {
		t.Errorf("code = %q, want 001", got.Match.Code)
	}
	if got.Match.Method != model.MatchExact {
		t.Errorf("method = %s, want exact", got.Match.Method)
	}
	if got.Match.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", got.Match.Confidence)
	}
	if got.Line != 12 {
		t.Errorf("line = %d, want 12", got.Line)
	}
}

func TestResolveRowExplodesNameList(t *testing.T) {
	r := newTestResolver(t, 0)

	resolved, rejected := r.ResolveRow("Louisiana", "Jefferson, Orleans and Plaquemines", 7)
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejects: %v", rejected)
	}
	if len(resolved) != 3 {
		t.Fatalf("got %d resolved, want 3", len(resolved))
	}

	wantCodes := []string{"051", "071", "075"}
	for i, want := range wantCodes {
		if resolved[i].Match.Code != want {
			t.Errorf("row %d code = %q, want %q", i, resolved[i].Match.Code, want)
		}
		if resolved[i].ParentCode != "22" {
			t.Errorf("row %d parent code = %q, want 22", i, resolved[i].ParentCode)
		}
		if resolved[i].Line != 7 {
			t.Errorf("row %d line = %d, want 7", i, resolved[i].Line)
		}
	}
}

func TestResolveRowAliasTiers(t *testing.T) {
	r := newTestResolver(t, 0)

	tests := []struct {
		name     string
		parent   string
		input    string
		wantCode string
	}{
		{name: "suffix stripped", parent: "Alabama", input: "Autauga County", wantCode: "001"},
		{name: "abbreviation expanded", parent: "Louisiana", input: "St. John the Baptist Parish", wantCode: "095"},
		{name: "diacritics stripped", parent: "New Mexico", input: "Doña Ana", wantCode: "013"},
		{name: "alias table", parent: "Louisiana", input: "Orleans Territory", wantCode: "071"},
		{name: "declared exception", parent: "Louisiana", input: "City of New Orleans", wantCode: "071"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, rejected := r.ResolveRow(tt.parent, tt.input, 1)
			if len(rejected) != 0 {
				t.Fatalf("rejected: %v", rejected)
			}
			if len(resolved) != 1 {
				t.Fatalf("got %d resolved, want 1", len(resolved))
			}
			got := resolved[0]
			if got.Match.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Match.Code, tt.wantCode)
			}
			if got.Match.Method != model.MatchAlias {
				t.Errorf("method = %s, want alias", got.Match.Method)
			}
			if got.Name != tt.input {
				t.Errorf("resolved name = %q, want original text %q", got.Name, tt.input)
			}
		})
	}
}

func TestResolveRowApproximateMatch(t *testing.T) {
	r := newTestResolver(t, 0)

	// one edit in a long name clears the default threshold
	resolved, rejected := r.ResolveRow("Louisiana", "Saint John the Baptizt", 3)
	if len(rejected) != 0 {
		t.Fatalf("rejected: %v", rejected)
	}
	if len(resolved) != 1 {
		t.Fatalf("got %d resolved, want 1", len(resolved))
	}
	got := resolved[0]
	if got.Match.Code != "095" {
		t.Errorf("code = %q, want 095", got.Match.Code)
	}
	if got.Match.Method != model.MatchApproximate {
		t.Errorf("method = %s, want approximate", got.Match.Method)
	}
	if got.Match.Confidence >= 1.0 || got.Match.Confidence < DefaultThreshold {
		t.Errorf("confidence = %v, want in [%v, 1)", got.Match.Confidence, DefaultThreshold)
	}
}

func TestResolveRowNearMissQuarantinedWithBestCandidate(t *testing.T) {
	r := newTestResolver(t, 0)

	// one edit in a short name stays below the default threshold
	resolved, rejected := r.ResolveRow("Alabama", "Autaga", 9)
	if len(resolved) != 0 {
		t.Fatalf("near miss resolved: %v", resolved)
	}
	if len(rejected) != 1 {
		t.Fatalf("got %d rejects, want 1", len(rejected))
	}

	reject := rejected[0]
	if reject.Reason != model.ReasonResolutionNotFound {
		t.Errorf("reason = %s, want %s", reject.Reason, model.ReasonResolutionNotFound)
	}
	if reject.Severity != model.SeverityBlock {
		t.Errorf("severity = %s, want BLOCK", reject.Severity)
	}
	if len(reject.Candidates) == 0 || reject.Candidates[0] != "AUTAUGA" {
		t.Errorf("candidates = %v, want best candidate AUTAUGA first", reject.Candidates)
	}
	if reject.Raw.Get("name") != "Autaga" {
		t.Errorf("reject should carry original text, got %q", reject.Raw.Get("name"))
	}
}

func TestResolveRowTieRefused(t *testing.T) {
	tables := loadTestTables(t)
	tables.Children["ALABAMA"]["BRAXTON"] = "007"
	tables.Children["ALABAMA"]["BRAYTON"] = "009"

	r, err := NewResolver(tables, 0.8, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	// BRAZTON is one edit from both BRAXTON and BRAYTON
	resolved, rejected := r.ResolveRow("Alabama", "Brazton", 5)
	if len(resolved) != 0 {
		t.Fatalf("tied match resolved: %v", resolved)
	}
	if len(rejected) != 1 {
		t.Fatalf("got %d rejects, want 1", len(rejected))
	}

	reject := rejected[0]
	if reject.Reason != model.ReasonResolutionAmbiguous {
		t.Errorf("reason = %s, want %s", reject.Reason, model.ReasonResolutionAmbiguous)
	}
	if len(reject.Candidates) != 2 {
		t.Fatalf("candidates = %v, want both tied names", reject.Candidates)
	}
	if reject.Candidates[0] != "BRAXTON" || reject.Candidates[1] != "BRAYTON" {
		t.Errorf("candidates = %v, want [BRAXTON BRAYTON] in sorted order", reject.Candidates)
	}
}

func TestResolveRowSentinelExpansion(t *testing.T) {
	r := newTestResolver(t, 0)

	resolved, rejected := r.ResolveRow("Alabama", "Statewide", 2)
	if len(rejected) != 0 {
		t.Fatalf("rejected: %v", rejected)
	}
	if len(resolved) != 3 {
		t.Fatalf("got %d resolved, want all 3 children", len(resolved))
	}

	// expansion is sorted by code for deterministic output
	wantCodes := []string{"001", "003", "005"}
	for i, want := range wantCodes {
		if resolved[i].Match.Code != want {
			t.Errorf("row %d code = %q, want %q", i, resolved[i].Match.Code, want)
		}
	}
}

func TestResolveRowSentinelWithoutChildrenQuarantined(t *testing.T) {
	r := newTestResolver(t, 0)

	// Guam declares exceptions but no children crosswalk, so the sentinel
	// expands to nothing; the name must surface in quarantine, not vanish
	resolved, rejected := r.ResolveRow("Guam", "Statewide", 4)
	if len(resolved) != 0 {
		t.Fatalf("empty expansion resolved rows: %v", resolved)
	}
	if len(rejected) != 1 {
		t.Fatalf("got %d rejects, want 1", len(rejected))
	}
	reject := rejected[0]
	if reject.Reason != model.ReasonResolutionNotFound {
		t.Errorf("reason = %s, want %s", reject.Reason, model.ReasonResolutionNotFound)
	}
	if reject.Raw.Get("name") != "Statewide" {
		t.Errorf("reject should carry original text, got %q", reject.Raw.Get("name"))
	}

	resolved, rejected = r.ResolveRow("Atlantis", "Statewide", 5)
	if len(resolved) != 0 || len(rejected) != 1 {
		t.Errorf("sentinel under unknown parent: %d resolved, %d rejected, want 0 and 1",
			len(resolved), len(rejected))
	}
}

func TestResolveRowExceptionsOnlyParent(t *testing.T) {
	r := newTestResolver(t, 0)

	// exceptions are consulted before any children crosswalk exists
	resolved, rejected := r.ResolveRow("Guam", "Agana", 6)
	if len(rejected) != 0 {
		t.Fatalf("rejected: %v", rejected)
	}
	if len(resolved) != 1 {
		t.Fatalf("got %d resolved, want 1", len(resolved))
	}
	got := resolved[0]
	if got.Match.Code != "010" {
		t.Errorf("code = %q, want 010", got.Match.Code)
	}
	if got.Match.Method != model.MatchAlias {
		t.Errorf("method = %s, want alias", got.Match.Method)
	}
	if got.ParentCode != "66" {
		t.Errorf("parent code = %q, want 66", got.ParentCode)
	}
}

func TestResolveRowUnknownParent(t *testing.T) {
	r := newTestResolver(t, 0)

	resolved, rejected := r.ResolveRow("Atlantis", "Autauga", 1)
	if len(resolved) != 0 {
		t.Fatalf("resolved under unknown parent: %v", resolved)
	}
	if len(rejected) != 1 {
		t.Fatalf("got %d rejects, want 1", len(rejected))
	}
	if rejected[0].Reason != model.ReasonResolutionNotFound {
		t.Errorf("reason = %s, want %s", rejected[0].Reason, model.ReasonResolutionNotFound)
	}
}

func TestResolveBatchExplosionParity(t *testing.T) {
	r := newTestResolver(t, 0)

	rows := []model.CanonicalRecord{
		{Values: map[string]string{"state": "Louisiana", "counties": "Jefferson, Orleans and Plaquemines"}, Line: 1},
		{Values: map[string]string{"state": "Alabama", "counties": "Statewide"}, Line: 2},
		{Values: map[string]string{"state": "Alabama", "counties": "Autaga"}, Line: 3},
		{Values: map[string]string{"state": "Guam", "counties": "Statewide"}, Line: 4},
	}

	resolved, rejected, total := r.ResolveBatch(rows, "state", "counties")
	if len(resolved)+len(rejected) != total {
		t.Errorf("explosion parity broken: resolved %d + rejected %d != total %d",
			len(resolved), len(rejected), total)
	}
	if total != 8 {
		t.Errorf("total = %d, want 8 (3 listed + 3 sentinel-expanded + 1 near miss + 1 empty sentinel)", total)
	}
}

func TestNewResolverValidation(t *testing.T) {
	if _, err := NewResolver(nil, 0, nil); err == nil {
		t.Error("nil tables accepted")
	}
	if _, err := NewResolver(loadTestTables(t), 1.5, nil); err == nil {
		t.Error("threshold above 1 accepted")
	}
	r, err := NewResolver(loadTestTables(t), 0, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if r.threshold != DefaultThreshold {
		t.Errorf("threshold = %v, want default %v", r.threshold, DefaultThreshold)
	}
}

func TestLoadTablesValidation(t *testing.T) {
	if _, err := LoadTables([]byte("parents: {}\nchildren: {}\n")); err == nil {
		t.Error("empty crosswalk accepted")
	}

	orphan := []byte(`
parents:
  ALABAMA: "01"
children:
  GEORGIA:
    FULTON: "121"
`)
	if _, err := LoadTables(orphan); err == nil {
		t.Error("crosswalk parent without a code accepted")
	}
}

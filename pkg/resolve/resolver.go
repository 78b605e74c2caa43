// pkg/resolve/resolver.go
package resolve

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// DefaultThreshold is the minimum similarity the approximate tier accepts.
// It is deliberately high: a near-miss is quarantined, not guessed.
const DefaultThreshold = 0.95

// nameDelimiters: lists split on comma, slash, and the word "and"
var andDelimiter = regexp.MustCompile(`(?i)\band\b`)

// Resolver maps free-text names to codes through exact, alias, and
// approximate tiers. It holds only read-only tables and a fixed threshold,
// so one instance serves any number of sequential or caller-parallel runs.
type Resolver struct {
	tables    *Tables
	threshold float64
	logger    *zap.Logger
}

// NewResolver creates a resolver. A non-positive threshold selects the
// default.
func NewResolver(tables *Tables, threshold float64, logger *zap.Logger) (*Resolver, error) {
	if tables == nil {
		return nil, errors.New("reference tables cannot be nil")
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if threshold > 1 {
		return nil, fmt.Errorf("similarity threshold %v exceeds 1.0", threshold)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{tables: tables, threshold: threshold, logger: logger}, nil
}

// Resolved is one exploded output row: a single matched name with its code
// and provenance
type Resolved struct {
	Parent     string
	ParentCode string
	Name       string // original name text as split from the list
	Match      model.MatchResult
	Line       int
}

// SplitNames splits a delimited name list on comma, slash, and the word
// "and", dropping empty segments
func SplitNames(list string) []string {
	s := strings.ReplaceAll(list, "/", ",")
	s = andDelimiter.ReplaceAllString(s, ",")
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ResolveRow resolves one raw list of candidate names under a parent.
// Each matched name becomes one output row; unmatched and ambiguous names
// are quarantined with the original text, parent, and best or tied
// candidates. They never appear in resolved output with a blank code.
func (r *Resolver) ResolveRow(parent, names string, line int) ([]Resolved, []model.RejectRecord) {
	var resolved []Resolved
	var rejected []model.RejectRecord

	parentKey := normalizeBasic(parent)
	parentCode := r.tables.Parents[parentKey]

	for _, name := range SplitNames(names) {
		nameKey := normalizeBasic(name)

		if r.tables.IsSentinel(nameKey) {
			expanded := r.expandAll(parent, parentKey, parentCode, line)
			if len(expanded) == 0 {
				// a sentinel under a parent with no crosswalk must surface
				// for triage, not vanish
				rejected = append(rejected, model.NewReject(
					rawFor(parent, name, line), model.ReasonResolutionNotFound, model.SeverityBlock,
					fmt.Sprintf("sentinel %q expands to no children under parent %q", name, parent)).
					WithField("name", name))
				r.logger.Warn("Sentinel quarantined",
					zap.String("parent", parent),
					zap.String("name", name))
				continue
			}
			resolved = append(resolved, expanded...)
			continue
		}

		outcome := r.matchName(parentKey, name)
		if outcome.found {
			resolved = append(resolved, Resolved{
				Parent:     parent,
				ParentCode: parentCode,
				Name:       name,
				Match:      outcome.result,
				Line:       line,
			})
			continue
		}

		reason := model.ReasonResolutionNotFound
		message := fmt.Sprintf("no match for %q under parent %q", name, parent)
		if outcome.ambiguous {
			reason = model.ReasonResolutionAmbiguous
			message = fmt.Sprintf("%d candidates tie at the top similarity for %q under parent %q; refusing to guess",
				len(outcome.candidates), name, parent)
		} else if len(outcome.candidates) > 0 {
			message += fmt.Sprintf("; best candidate %q", outcome.candidates[0])
		}

		rejected = append(rejected, model.NewReject(
			rawFor(parent, name, line), reason, model.SeverityBlock, message).
			WithField("name", name).
			WithCandidates(outcome.candidates))

		r.logger.Warn("Name quarantined",
			zap.String("parent", parent),
			zap.String("name", name),
			zap.String("reason", string(reason)),
			zap.Strings("candidates", outcome.candidates))
	}

	return resolved, rejected
}

// ResolveBatch resolves every row of a canonical batch, reading the parent
// and name-list fields by name. It also returns the total candidate-name
// count so callers can assert explosion parity.
func (r *Resolver) ResolveBatch(rows []model.CanonicalRecord, parentField, namesField string) ([]Resolved, []model.RejectRecord, int) {
	var resolved []Resolved
	var rejected []model.RejectRecord
	total := 0

	for _, row := range rows {
		parent := row.Get(parentField)
		names := row.Get(namesField)
		for _, name := range SplitNames(names) {
			if r.tables.IsSentinel(normalizeBasic(name)) {
				if n := len(r.tables.Children[normalizeBasic(parent)]); n > 0 {
					total += n
					continue
				}
				// an empty expansion yields one quarantined name
			}
			total++
		}
		rs, qs := r.ResolveRow(parent, names, row.Line)
		resolved = append(resolved, rs...)
		rejected = append(rejected, qs...)
	}
	return resolved, rejected, total
}

// expandAll explodes the all-children sentinel into one row per child,
// in code order for deterministic output
func (r *Resolver) expandAll(parent, parentKey, parentCode string, line int) []Resolved {
	children := r.tables.Children[parentKey]
	out := make([]Resolved, 0, len(children))
	for name, code := range children {
		out = append(out, Resolved{
			Parent:     parent,
			ParentCode: parentCode,
			Name:       name,
			Match:      model.MatchResult{Code: code, Method: model.MatchExact, Confidence: 1.0},
			Line:       line,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Match.Code < out[j].Match.Code })
	return out
}

// matchOutcome is the internal result of the tiered match
type matchOutcome struct {
	result     model.MatchResult
	found      bool
	ambiguous  bool
	candidates []string // tied candidates when ambiguous, best candidate otherwise
}

// matchName runs the tiers in order: parent exceptions, exact, alias-
// normalized exact, then approximate. The approximate tier only considers
// candidates sharing the same parent and accepts a match only when the top
// score clears the threshold and is unambiguous.
func (r *Resolver) matchName(parentKey, name string) matchOutcome {
	nameKey := normalizeBasic(name)

	// exceptions come first so a declared parent needs no children crosswalk
	if code, ok := r.tables.Exceptions[parentKey][nameKey]; ok {
		return matchOutcome{found: true, result: model.MatchResult{Code: code, Method: model.MatchAlias, Confidence: 1.0}}
	}

	children := r.tables.Children[parentKey]
	if code, ok := children[nameKey]; ok {
		return matchOutcome{found: true, result: model.MatchResult{Code: code, Method: model.MatchExact, Confidence: 1.0}}
	}

	normalized := aliasKey(name, r.tables)
	if normalized != nameKey {
		if code, ok := children[normalized]; ok {
			return matchOutcome{found: true, result: model.MatchResult{Code: code, Method: model.MatchAlias, Confidence: 1.0}}
		}
	}
	if canonical, ok := r.tables.Aliases[normalized]; ok {
		if code, ok := children[canonical]; ok {
			return matchOutcome{found: true, result: model.MatchResult{Code: code, Method: model.MatchAlias, Confidence: 1.0}}
		}
	}

	return r.matchApproximate(children, normalized)
}

// matchApproximate scans same-parent candidates by levenshtein similarity.
// Candidates are visited in sorted order so the outcome never depends on
// map iteration order.
func (r *Resolver) matchApproximate(children map[string]string, normalized string) matchOutcome {
	candidates := make([]string, 0, len(children))
	for child := range children {
		candidates = append(candidates, child)
	}
	sort.Strings(candidates)

	best := 0.0
	var tied []string
	for _, child := range candidates {
		score := similarity(normalized, aliasKey(child, r.tables))
		switch {
		case score > best:
			best = score
			tied = []string{child}
		case score == best && best > 0:
			tied = append(tied, child)
		}
	}

	if best < r.threshold || len(tied) == 0 {
		// below threshold: report the best candidate for triage, if any
		return matchOutcome{candidates: tied}
	}
	if len(tied) > 1 {
		// a tie at the top score is refused, not guessed
		return matchOutcome{ambiguous: true, candidates: tied}
	}
	return matchOutcome{
		found: true,
		result: model.MatchResult{
			Code:       children[tied[0]],
			Method:     model.MatchApproximate,
			Confidence: best,
		},
	}
}

// similarity converts edit distance to a 0..1 score over the longer length
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// rawFor synthesizes the provenance record a resolution reject carries
func rawFor(parent, name string, line int) model.RawRecord {
	return model.RawRecord{
		Columns: []string{"parent", "name"},
		Values:  map[string]string{"parent": parent, "name": name},
		Line:    line,
	}
}

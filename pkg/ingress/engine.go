// pkg/ingress/engine.go
package ingress

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/extract"
	"github.com/refdata-io/table-ingress/pkg/layout"
	"github.com/refdata-io/table-ingress/pkg/model"
	"github.com/refdata-io/table-ingress/pkg/normalize"
	"github.com/refdata-io/table-ingress/pkg/router"
	"github.com/refdata-io/table-ingress/pkg/validate"
)

// Engine is the parse pipeline: route, extract, normalize, validate,
// finalize. Each Parse invocation is a pure function of (file bytes,
// filename, run metadata); the only retained state is the read-only layout
// registry, contracts, and alias tables loaded at construction. The engine
// holds no locks because it never mutates shared structures, so callers may
// parallelize at file granularity.
type Engine struct {
	router    *router.Router
	contracts map[string]*model.SchemaContract
	aliases   map[string]map[string]string
	logger    *zap.Logger
}

// NewEngine wires the pipeline over immutable reference data. Contracts
// are keyed by schema identifier; alias tables by the same key.
func NewEngine(
	layouts *layout.Registry,
	contracts map[string]*model.SchemaContract,
	aliases map[string]map[string]string,
	logger *zap.Logger,
) (*Engine, error) {
	if layouts == nil {
		return nil, errors.New("layout registry cannot be nil")
	}
	if len(contracts) == 0 {
		return nil, errors.New("at least one schema contract is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	copied := make(map[string]*model.SchemaContract, len(contracts))
	for id, contract := range contracts {
		if err := contract.Validate(); err != nil {
			return nil, fmt.Errorf("invalid contract %s: %w", id, err)
		}
		copied[id] = contract
	}

	aliasCopy := make(map[string]map[string]string, len(aliases))
	for id, table := range aliases {
		inner := make(map[string]string, len(table))
		for k, v := range table {
			inner[k] = v
		}
		aliasCopy[id] = inner
	}

	return &Engine{
		router:    router.New(layouts, logger),
		contracts: copied,
		aliases:   aliasCopy,
		logger:    logger,
	}, nil
}

// Result is the in-memory output of one parse: the accepted-row table, the
// quarantined-row table, and the run metrics. Persistence is the caller's
// responsibility.
type Result struct {
	Accepted    []model.CanonicalRecord
	Quarantined []model.RejectRecord
	Metrics     *RunMetrics
}

// Parse converts one file into canonical records. Row-level failures are
// quarantined and never abort the file; structural failures abort this file
// only, with enough context to act on without a debugger.
func (e *Engine) Parse(content []byte, filename string, meta model.RunMetadata) (*Result, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	contract, ok := e.contracts[meta.SchemaID]
	if !ok {
		return nil, &model.StructuralError{
			Reason: model.ReasonMissingRunMetadata,
			Detail: fmt.Sprintf("no schema contract registered for %q", meta.SchemaID),
		}
	}

	metrics := NewRunMetrics(contract.Dataset, filename, e.logger)
	result := &Result{Metrics: metrics}

	// layouts are versioned by release, so the release identifier doubles
	// as the layout vintage key
	decision, err := e.router.Route(content, filename, contract.Dataset, meta.ReleaseID)
	if err != nil {
		return nil, err
	}
	metrics.Encoding = decision.Encoding

	records, err := e.extractRows(decision, contract)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &model.StructuralError{
			Reason: model.ReasonEmptyInput,
			Detail: fmt.Sprintf("file %s yielded no data rows", filename),
		}
	}

	mapper := normalize.NewHeaderMapper(e.aliases[meta.SchemaID], e.logger)
	records = mapper.Rewrite(records)

	if err := normalize.VerifyRequired(records[0].Columns, contract); err != nil {
		return nil, err
	}

	validator, err := validate.New(contract, e.logger)
	if err != nil {
		return nil, err
	}
	canonicalizer, err := normalize.NewCanonicalizer(contract, meta, e.logger)
	if err != nil {
		return nil, err
	}

	quarantine := func(reject model.RejectRecord) {
		result.Quarantined = append(result.Quarantined, reject)
		metrics.RecordQuarantine(reject.Reason)
		e.logger.Warn("Row quarantined",
			zap.String("dataset", contract.Dataset),
			zap.String("reason", string(reject.Reason)),
			zap.Int("line", reject.Raw.Line),
			zap.String("detail", reject.Message))
	}

	var accepted []finalized
	var acceptedRaw []model.RawRecord

rows:
	for _, raw := range records {
		metrics.RowsSeen++

		// categorical checks run before narrower-type casting so violations
		// report the original offending value
		for _, finding := range validator.CheckCategorical(raw) {
			quarantine(model.NewReject(raw, finding.Reason, finding.Severity, finding.Message).
				WithField(finding.Field, finding.Value))
			continue rows
		}

		values, reject := canonicalizer.Row(raw)
		if reject != nil {
			quarantine(*reject)
			continue
		}

		for _, finding := range validator.CheckRanges(values) {
			if finding.Severity == model.SeverityBlock || contract.QuarantineOnWarn {
				quarantine(model.NewReject(raw, finding.Reason, finding.Severity, finding.Message).
					WithField(finding.Field, finding.Value))
				continue rows
			}
			e.logger.Warn("Range warning",
				zap.String("dataset", contract.Dataset),
				zap.String("field", finding.Field),
				zap.String("value", finding.Value),
				zap.Int("line", raw.Line))
		}

		accepted = append(accepted, finalized{values: values, line: raw.Line})
		acceptedRaw = append(acceptedRaw, raw)
	}

	accepted, acceptedRaw, err = e.applyDuplicatePolicy(contract, validator, accepted, acceptedRaw, quarantine)
	if err != nil {
		return nil, err
	}

	if finding := validator.CheckRowCount(len(accepted)); finding != nil {
		if finding.Severity == model.SeverityBlock {
			return nil, &model.StructuralError{
				Reason: finding.Reason,
				Detail: finding.Message,
			}
		}
		e.logger.Warn("Row count outside expected band",
			zap.String("dataset", contract.Dataset),
			zap.String("detail", finding.Message))
	}

	result.Accepted = Finalize(accepted, contract)
	metrics.RowsAccepted = len(result.Accepted)
	metrics.ComputeFieldStats(result.Accepted, contract)
	metrics.Complete()
	return result, nil
}

// applyDuplicatePolicy enforces natural-key uniqueness among accepted rows.
// Duplicates are never ignored: the block policy fails the whole batch, the
// quarantine policy keeps the first occurrence and quarantines later ones.
func (e *Engine) applyDuplicatePolicy(
	contract *model.SchemaContract,
	validator *validate.Engine,
	accepted []finalized,
	acceptedRaw []model.RawRecord,
	quarantine func(model.RejectRecord),
) ([]finalized, []model.RawRecord, error) {
	keyFields := contract.NaturalKeyFields()
	keys := make([]string, len(accepted))
	for i, row := range accepted {
		keys[i] = joinFields(row.values, keyFields, KeySeparator)
	}

	dupIdx := validator.Duplicates(keys)
	if len(dupIdx) == 0 {
		return accepted, acceptedRaw, nil
	}

	if contract.Duplicates == model.DuplicateBlock {
		return nil, nil, &model.UniquenessError{
			Dataset:    contract.Dataset,
			Key:        keys[dupIdx[0]],
			Duplicates: len(dupIdx),
		}
	}

	drop := make(map[int]bool, len(dupIdx))
	for _, i := range dupIdx {
		drop[i] = true
		quarantine(model.NewReject(acceptedRaw[i], model.ReasonDuplicateKey, model.SeverityWarn,
			fmt.Sprintf("natural key %q already accepted earlier in this batch", keys[i])))
	}

	keptRows := make([]finalized, 0, len(accepted)-len(dupIdx))
	keptRaw := make([]model.RawRecord, 0, len(accepted)-len(dupIdx))
	for i := range accepted {
		if drop[i] {
			continue
		}
		keptRows = append(keptRows, accepted[i])
		keptRaw = append(keptRaw, acceptedRaw[i])
	}
	return keptRows, keptRaw, nil
}

// extractRows dispatches to the extractor the router selected
func (e *Engine) extractRows(decision *router.Decision, contract *model.SchemaContract) ([]model.RawRecord, error) {
	switch decision.Format {
	case router.FormatFixedWidth:
		return extract.FixedWidth(decision.Text, decision.Layout, e.logger)
	case router.FormatDelimited:
		return extract.Delimited(decision.Text, contract.AnchorTokens, e.logger)
	case router.FormatSpreadsheet:
		return extract.Spreadsheet(decision.Content, contract.AnchorTokens, e.logger)
	default:
		return nil, &model.StructuralError{
			Reason: model.ReasonUnsupportedFormat,
			Detail: fmt.Sprintf("router produced unknown format %v", decision.Format),
		}
	}
}

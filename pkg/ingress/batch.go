// pkg/ingress/batch.go
package ingress

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// File is one unit of work for the batch runner
type File struct {
	Name    string
	Content []byte
	Meta    model.RunMetadata
}

// BatchResult aggregates a sequential multi-file run
type BatchResult struct {
	Results map[string]*Result
	Failed  map[string]error

	StartTime        time.Time
	EndTime          time.Time
	TotalAccepted    int
	TotalQuarantined int
}

// Duration returns the total batch duration
func (b *BatchResult) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// Runner processes files one at a time, in order. Cancellation is
// file-granular: a malformed file fails fast for that file, and
// ContinueOnError decides whether the remaining files still run.
type Runner struct {
	engine *Engine
	logger *zap.Logger

	// ContinueOnError keeps going past file-scoped failures. Internal
	// errors always stop the batch.
	ContinueOnError bool
}

// NewRunner creates a batch runner over an engine
func NewRunner(engine *Engine, logger *zap.Logger) (*Runner, error) {
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{engine: engine, logger: logger, ContinueOnError: true}, nil
}

// Run parses every file sequentially and aggregates the outcomes
func (r *Runner) Run(files []File) *BatchResult {
	batch := &BatchResult{
		Results:   make(map[string]*Result, len(files)),
		Failed:    make(map[string]error),
		StartTime: time.Now(),
	}

	for _, file := range files {
		result, err := r.engine.Parse(file.Content, file.Name, file.Meta)
		if err != nil {
			class := Classify(err)
			batch.Failed[file.Name] = err
			r.logger.Error("File failed",
				zap.String("file", file.Name),
				zap.String("class", class.String()),
				zap.Error(err))

			if ActionFor(class) == ActionAbort || !r.ContinueOnError {
				break
			}
			continue
		}

		batch.Results[file.Name] = result
		batch.TotalAccepted += len(result.Accepted)
		batch.TotalQuarantined += len(result.Quarantined)
	}

	batch.EndTime = time.Now()
	r.logger.Info("Batch complete",
		zap.Int("files", len(files)),
		zap.Int("failed", len(batch.Failed)),
		zap.Int("accepted", batch.TotalAccepted),
		zap.Int("quarantined", batch.TotalQuarantined),
		zap.Duration("duration", batch.Duration()))
	return batch
}

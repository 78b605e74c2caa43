// pkg/router/router.go
package router

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/layout"
	"github.com/refdata-io/table-ingress/pkg/model"
)

// Format identifies which extractor a file should be routed to
type Format int

const (
	FormatUnknown Format = iota
	FormatFixedWidth
	FormatDelimited
	FormatSpreadsheet
)

// String returns a string representation of the format
func (f Format) String() string {
	switch f {
	case FormatFixedWidth:
		return "fixed-width"
	case FormatDelimited:
		return "delimited"
	case FormatSpreadsheet:
		return "spreadsheet"
	default:
		return "unknown"
	}
}

// MaxArchiveDepth limits archive unwrapping to a single level. The source
// distributions only ever wrap once; a zip inside a zip is rejected rather
// than recursed into.
const MaxArchiveDepth = 1

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// Decision is the router's verdict: which extractor to use, with the
// decoded content, detected encoding, and the inner archive member when
// one was unwrapped.
type Decision struct {
	Format   Format
	Layout   *model.Layout // set for fixed-width only
	Text     string        // decoded text for textual formats
	Content  []byte        // raw bytes for spreadsheet extraction
	Encoding string
	Member   string // inner archive member name, "" when not archived
}

// Router inspects filename and leading bytes to select an extractor.
// It consults the layout registry for fixed-width routing and never
// guesses column offsets.
type Router struct {
	layouts *layout.Registry
	logger  *zap.Logger
}

// New creates a router over an immutable layout registry
func New(layouts *layout.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{layouts: layouts, logger: logger}
}

// Route decides how to extract the given file. Layout lookup is keyed by
// (dataset, vintage); an absent layout falls back to delimited or
// spreadsheet extraction.
func (r *Router) Route(content []byte, filename, dataset, vintage string) (*Decision, error) {
	return r.route(content, filename, dataset, vintage, 0)
}

func (r *Router) route(content []byte, filename, dataset, vintage string, depth int) (*Decision, error) {
	if len(content) == 0 {
		return nil, &model.StructuralError{
			Reason: model.ReasonEmptyInput,
			Detail: fmt.Sprintf("file %s is empty", filename),
		}
	}

	ext := strings.ToLower(path.Ext(filename))

	if bytes.HasPrefix(content, zipMagic) {
		// xlsx files are zip containers too; tell them apart before
		// treating the bytes as an archive to unwrap.
		if ext == ".xlsx" || ext == ".xlsm" || isOfficeContainer(content) {
			return &Decision{Format: FormatSpreadsheet, Content: content, Encoding: "binary"}, nil
		}
		if depth >= MaxArchiveDepth {
			return nil, &model.StructuralError{
				Reason: model.ReasonUnsupportedFormat,
				Detail: fmt.Sprintf("nested archive member %s exceeds depth limit %d", filename, MaxArchiveDepth),
			}
		}
		member, inner, err := r.unwrapArchive(content, filename)
		if err != nil {
			return nil, err
		}
		decision, err := r.route(inner, member, dataset, vintage, depth+1)
		if err != nil {
			return nil, err
		}
		decision.Member = member
		return decision, nil
	}

	if ext == ".xls" {
		// legacy OLE workbooks are not supported; callers re-export as xlsx
		return nil, &model.StructuralError{
			Reason: model.ReasonUnsupportedFormat,
			Detail: fmt.Sprintf("legacy binary spreadsheet %s is not supported", filename),
		}
	}

	text, encoding := DecodeText(content)

	if lay, ok := r.layouts.Lookup(dataset, vintage); ok {
		r.logger.Info("Routing to fixed-width extraction",
			zap.String("file", filename),
			zap.String("dataset", dataset),
			zap.String("vintage", vintage),
			zap.String("encoding", encoding))
		return &Decision{Format: FormatFixedWidth, Layout: lay, Text: text, Encoding: encoding}, nil
	}

	r.logger.Info("No layout registered; falling back to delimited extraction",
		zap.String("file", filename),
		zap.String("dataset", dataset),
		zap.String("vintage", vintage),
		zap.String("encoding", encoding))
	return &Decision{Format: FormatDelimited, Text: text, Encoding: encoding}, nil
}

// unwrapArchive opens a one-level zip and returns the best-matching member.
// Members are scored by extension so a data file wins over readme baggage.
func (r *Router) unwrapArchive(content []byte, filename string) (string, []byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", nil, &model.StructuralError{
			Reason: model.ReasonUnsupportedFormat,
			Detail: fmt.Sprintf("cannot open archive %s: %v", filename, err),
		}
	}

	var best *zip.File
	bestScore := -1
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		score := memberScore(f.Name)
		if score > bestScore || (score == bestScore && best != nil && f.UncompressedSize64 > best.UncompressedSize64) {
			best = f
			bestScore = score
		}
	}
	if best == nil {
		return "", nil, &model.StructuralError{
			Reason: model.ReasonEmptyInput,
			Detail: fmt.Sprintf("archive %s contains no files", filename),
		}
	}

	rc, err := best.Open()
	if err != nil {
		return "", nil, &model.StructuralError{
			Reason: model.ReasonUnsupportedFormat,
			Detail: fmt.Sprintf("cannot read archive member %s: %v", best.Name, err),
		}
	}
	defer rc.Close()

	inner, err := io.ReadAll(rc)
	if err != nil {
		return "", nil, &model.StructuralError{
			Reason: model.ReasonUnsupportedFormat,
			Detail: fmt.Sprintf("cannot read archive member %s: %v", best.Name, err),
		}
	}

	r.logger.Info("Unwrapped archive",
		zap.String("archive", filename),
		zap.String("member", best.Name),
		zap.Int("memberCount", len(zr.File)))
	return best.Name, inner, nil
}

// memberScore ranks archive members by how likely they are the data file
func memberScore(name string) int {
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".dat":
		return 4
	case ".csv", ".tsv":
		return 3
	case ".xlsx":
		return 2
	case ".zip":
		// nested archives rank last; choosing one fails the depth guard
		// with a clear error rather than silently skipping it
		return 0
	default:
		return 1
	}
}

// isOfficeContainer peeks into a zip for the OOXML content-types entry
func isOfficeContainer(content []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == "[Content_Types].xml" {
			return true
		}
	}
	return false
}

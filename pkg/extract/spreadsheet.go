// pkg/extract/spreadsheet.go
package extract

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// Spreadsheet extracts raw records from a workbook. It auto-selects the
// first sheet whose scan window contains the anchor-token header row and
// forces every cell to its raw text so leading-zero codes survive instead
// of being silently coerced to numbers.
func Spreadsheet(content []byte, anchors []string, logger *zap.Logger) ([]model.RawRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &model.StructuralError{
			Reason: model.ReasonUnsupportedFormat,
			Detail: fmt.Sprintf("cannot open workbook: %v", err),
		}
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			logger.Warn("Skipping unreadable sheet",
				zap.String("sheet", sheet),
				zap.Error(err))
			continue
		}
		headerIdx, found := findHeaderRow(rows, anchors)
		if !found {
			continue
		}

		records := rowsToRecords(rows, headerIdx, func(i int) int { return i + 1 })
		logger.Info("Spreadsheet extraction complete",
			zap.String("sheet", sheet),
			zap.Int("headerRow", headerIdx+1),
			zap.Int("rows", len(records)))
		return records, nil
	}

	return nil, &model.StructuralError{
		Reason: model.ReasonHeaderNotFound,
		Detail: fmt.Sprintf("no sheet contains a header row with at least two anchor tokens %v within %d rows",
			anchors, headerScanLimit),
	}
}

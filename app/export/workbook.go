// Package export renders a generated formula into an .xlsx workbook.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"example/formula-api/app/models"

	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheetName = "Formula"

var ErrEmptyFormula = errors.New("formula is required")

// Workbook lays the formula out as a one-row table: the formula text, the
// explanation, the platform, and a live cell holding the formula itself.
func Workbook(req models.ExportRequest) ([]byte, error) {
	formula := strings.TrimSpace(req.Formula)
	if formula == "" || formula == "=" {
		return nil, ErrEmptyFormula
	}
	platform := strings.TrimSpace(req.Platform)
	if platform == "" {
		platform = "excel"
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := []interface{}{"formula", "explanation", "platform", "result"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := []interface{}{formula, strings.TrimSpace(req.Explanation), platform}
	if err := f.SetSheetRow(sheetName, "A2", &row); err != nil {
		return nil, fmt.Errorf("write row: %w", err)
	}
	if err := f.SetCellFormula(sheetName, "D2", strings.TrimPrefix(formula, "=")); err != nil {
		return nil, fmt.Errorf("write formula cell: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "B", 60); err != nil {
		return nil, fmt.Errorf("set widths: %w", err)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func FileName(now time.Time) string {
	return fmt.Sprintf("formula_%s.xlsx", now.Format("20060102_150405"))
}

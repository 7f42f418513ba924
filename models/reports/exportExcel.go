package reports

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExcelExporter is implemented by report rows that can be written to a
// spreadsheet.
type ExcelExporter interface {
	GetCellValues() []interface{}
}

// WriteExcel renders the report rows to XLSX, one row per record under
// the given header row.
func WriteExcel(w io.Writer, headers []string, rows []ExcelExporter) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}

	for rowNo, row := range rows {
		for col, value := range row.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNo+2)
			if err != nil {
				return err
			}
			// excelize renders decimals as their struct fields; write the
			// string form instead
			if d, ok := value.(decimal.Decimal); ok {
				value = d.String()
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write excel file: %w", err)
	}
	return nil
}

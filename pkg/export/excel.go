package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// EncodeExcel выгружает таблицу одним листом книги Excel.
// Первая строка - заголовок, NULL остается пустой ячейкой.
func EncodeExcel(tbl *table.Table, baseName string) (*Result, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]any, tbl.NumCols())
	for j, name := range tbl.ColumnNames() {
		header[j] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write excel header: %w", err)
	}

	rec := make([]any, tbl.NumCols())
	for i, row := range tbl.Rows {
		for j, cell := range row {
			if cell.Valid {
				rec[j] = cell.Value
			} else {
				rec[j] = nil
			}
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("excel cell address: %w", err)
		}
		if err := f.SetSheetRow(sheet, addr, &rec); err != nil {
			return nil, fmt.Errorf("write excel row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel file: %w", err)
	}

	return &Result{
		Filename:    baseName + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
		Checksum:    checksum(buf.Bytes()),
	}, nil
}

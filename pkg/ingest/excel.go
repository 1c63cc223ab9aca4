package ingest

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// DecodeExcel читает первый лист книги Excel.
// Первая строка листа - заголовок, пустые ячейки - NULL.
func DecodeExcel(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &DecodeError{Format: FormatExcel, Message: err.Error()}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &DecodeError{Format: FormatExcel, Message: "workbook has no sheets"}
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &DecodeError{Format: FormatExcel, Message: err.Error()}
	}
	if len(records) == 0 {
		return nil, &DecodeError{Format: FormatExcel, Message: "sheet is empty: header row is required"}
	}

	header := records[0]
	rows := make([][]table.Cell, 0, len(records)-1)
	for _, record := range records[1:] {
		// GetRows обрезает пустой хвост строки
		row := make([]table.Cell, len(header))
		for j := range header {
			if j >= len(record) || record[j] == "" {
				row[j] = table.Null()
			} else {
				row[j] = table.String(record[j])
			}
		}
		rows = append(rows, row)
	}

	cols := table.InferColumns(header, rows)
	tbl, err := table.New(cols, rows)
	if err != nil {
		return nil, &DecodeError{Format: FormatExcel, Message: err.Error()}
	}
	return tbl, nil
}

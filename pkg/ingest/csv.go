package ingest

import (
	"encoding/csv"
	"io"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// DecodeCSV читает CSV с заголовком в первой строке.
// Пустая ячейка трактуется как NULL, типы колонок выводятся
// по непустым значениям.
func DecodeCSV(r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &DecodeError{Format: FormatCSV, Message: err.Error()}
	}
	if len(records) == 0 {
		return nil, &DecodeError{Format: FormatCSV, Message: "empty input: header row is required"}
	}

	header := records[0]
	rows := make([][]table.Cell, 0, len(records)-1)
	for _, record := range records[1:] {
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
		return nil, &DecodeError{Format: FormatCSV, Message: err.Error()}
	}
	return tbl, nil
}

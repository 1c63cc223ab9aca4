package export

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// EncodeJSON выгружает таблицу массивом объектов с отступом в два
// пробела. Числовые и булевы значения записываются JSON типами,
// NULL ячейки - как null.
func EncodeJSON(tbl *table.Table, baseName string) (*Result, error) {
	records := make([]map[string]any, 0, tbl.NumRows())
	names := tbl.ColumnNames()

	for _, row := range tbl.Rows {
		rec := make(map[string]any, len(names))
		for j, cell := range row {
			rec[names[j]] = jsonValue(cell, tbl.Columns[j].Kind)
		}
		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	return &Result{
		Filename:    baseName + ".json",
		ContentType: "application/json",
		Data:        data,
		Checksum:    checksum(data),
	}, nil
}

// jsonValue переводит ячейку в JSON значение соответственно типу колонки.
// Значение, не поддающееся парсингу в тип колонки, уходит строкой.
func jsonValue(cell table.Cell, kind table.Kind) any {
	if !cell.Valid {
		return nil
	}
	switch kind {
	case table.KindInteger:
		if v, err := strconv.ParseInt(cell.Value, 10, 64); err == nil {
			return v
		}
	case table.KindFloat:
		if v, err := strconv.ParseFloat(cell.Value, 64); err == nil {
			return v
		}
	case table.KindBoolean:
		if v, err := strconv.ParseBool(cell.Value); err == nil {
			return v
		}
	}
	return cell.Value
}

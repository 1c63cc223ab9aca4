package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// DecodeJSON читает массив объектов (records-ориентация):
//
//	[{"id": 1, "name": "alice"}, {"id": 2, "name": null}]
//
// Набор колонок - объединение ключей всех объектов в порядке первого
// появления. Отсутствующий ключ и null дают NULL ячейку.
func DecodeJSON(r io.Reader) (*table.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, &DecodeError{Format: FormatJSON, Message: err.Error()}
	}

	// Порядок колонок: первое появление ключа.
	// encoding/json не сохраняет порядок внутри объекта, поэтому
	// ключи каждого объекта добавляются отсортированными.
	var names []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, key := range sortedKeys(rec) {
			if !seen[key] {
				seen[key] = true
				names = append(names, key)
			}
		}
	}
	if len(names) == 0 {
		return nil, &DecodeError{Format: FormatJSON, Message: "no records or no keys in input"}
	}

	rows := make([][]table.Cell, 0, len(records))
	for i, rec := range records {
		row := make([]table.Cell, len(names))
		for j, name := range names {
			v, ok := rec[name]
			if !ok || v == nil {
				row[j] = table.Null()
				continue
			}
			cell, err := jsonCell(v)
			if err != nil {
				return nil, &DecodeError{
					Format:  FormatJSON,
					Message: fmt.Sprintf("record %d, key %q: %v", i, name, err),
				}
			}
			row[j] = cell
		}
		rows = append(rows, row)
	}

	cols := table.InferColumns(names, rows)
	tbl, err := table.New(cols, rows)
	if err != nil {
		return nil, &DecodeError{Format: FormatJSON, Message: err.Error()}
	}
	return tbl, nil
}

func jsonCell(v any) (table.Cell, error) {
	switch val := v.(type) {
	case string:
		return table.String(val), nil
	case bool:
		return table.String(strconv.FormatBool(val)), nil
	case json.Number:
		return table.String(val.String()), nil
	case float64:
		// Decode без UseNumber - на всякий случай
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return table.String(strconv.FormatInt(int64(val), 10)), nil
		}
		return table.String(strconv.FormatFloat(val, 'g', -1, 64)), nil
	default:
		return table.Cell{}, fmt.Errorf("nested value of type %T is not supported", v)
	}
}

func sortedKeys(rec map[string]any) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package profile вычисляет метрики качества данных таблицы.
package profile

import (
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// maxSampleValues - сколько примеров значений попадает в отчет колонки
const maxSampleValues = 3

// ColumnReport - сводка по одной колонке
type ColumnReport struct {
	Name    string     `json:"name"`
	Kind    table.Kind `json:"kind"`
	NonNull int        `json:"non_null"`
	Nulls   int        `json:"nulls"`
	Uniques int        `json:"uniques"`
	Samples []string   `json:"samples"`
}

// Report строит сводку по всем колонкам таблицы.
// Samples - первые уникальные непустые значения в порядке появления.
func Report(tbl *table.Table) []ColumnReport {
	reports := make([]ColumnReport, len(tbl.Columns))

	for j, col := range tbl.Columns {
		rep := ColumnReport{Name: col.Name, Kind: col.Kind}
		seen := make(map[string]bool)

		for _, row := range tbl.Rows {
			cell := row[j]
			if !cell.Valid {
				rep.Nulls++
				continue
			}
			rep.NonNull++
			if !seen[cell.Value] {
				seen[cell.Value] = true
				if len(rep.Samples) < maxSampleValues {
					rep.Samples = append(rep.Samples, cell.Value)
				}
			}
		}
		rep.Uniques = len(seen)
		reports[j] = rep
	}

	return reports
}

// Health - интегральная оценка качества таблицы.
// Все значения в процентах от 0 до 100.
type Health struct {
	// Completeness - доля непустых ячеек
	Completeness float64 `json:"completeness"`
	// Uniqueness - доля строк без полных дубликатов
	Uniqueness float64 `json:"uniqueness"`
	// Score - среднее Completeness и Uniqueness
	Score float64 `json:"score"`
	// MissingByColumn - процент пропусков по колонкам
	MissingByColumn map[string]float64 `json:"missing_by_column"`
}

// HealthScore вычисляет оценку качества таблицы.
// Пустая таблица считается полной и уникальной.
func HealthScore(tbl *table.Table) Health {
	h := Health{
		Completeness:    100,
		Uniqueness:      100,
		MissingByColumn: make(map[string]float64, len(tbl.Columns)),
	}
	for _, col := range tbl.Columns {
		h.MissingByColumn[col.Name] = 0
	}

	rows, cols := tbl.NumRows(), tbl.NumCols()
	if rows > 0 && cols > 0 {
		h.Completeness = 100 * float64(rows*cols-tbl.MissingCount()) / float64(rows*cols)

		for j, col := range tbl.Columns {
			missing := 0
			for _, row := range tbl.Rows {
				if !row[j].Valid {
					missing++
				}
			}
			h.MissingByColumn[col.Name] = 100 * float64(missing) / float64(rows)
		}

		h.Uniqueness = 100 * float64(rows-duplicateRows(tbl)) / float64(rows)
	}

	h.Score = (h.Completeness + h.Uniqueness) / 2
	return h
}

// duplicateRows считает строки, полностью совпадающие с более ранними.
// Хэш только группирует кандидатов, совпадение подтверждается
// поячеечным сравнением: значения сами могут содержать байты
// разделителя, поэтому одному хэшу доверять нельзя.
func duplicateRows(tbl *table.Table) int {
	buckets := make(map[uint64][][]table.Cell, len(tbl.Rows))
	dups := 0

	for _, row := range tbl.Rows {
		h := hashRow(row)
		matched := false
		for _, earlier := range buckets[h] {
			if rowsEqual(earlier, row) {
				matched = true
				break
			}
		}
		if matched {
			dups++
		} else {
			buckets[h] = append(buckets[h], row)
		}
	}
	return dups
}

func hashRow(row []table.Cell) uint64 {
	var b strings.Builder
	for _, cell := range row {
		if cell.Valid {
			b.WriteByte(1)
			b.WriteString(cell.Value)
		} else {
			b.WriteByte(0)
		}
		b.WriteByte(0x1f)
	}
	return xxh3.HashString(b.String())
}

func rowsEqual(a, b []table.Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

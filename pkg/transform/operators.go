// Package transform содержит чистые операторы очистки данных.
//
// Каждый оператор принимает таблицу и параметры, возвращает НОВУЮ таблицу
// и сводку изменений. Вход никогда не мутируется, workspace оператор не
// трогает - заменить текущий датасет и записать транзакцию обязан
// вызывающий.
package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DukeAche/Etl-studio/pkg/table"
	"github.com/zeebo/xxh3"
)

// FillMethod - способ заполнения пропущенных значений
type FillMethod string

const (
	FillForward  FillMethod = "forward"
	FillBackward FillMethod = "backward"
	FillZero     FillMethod = "zero"
	FillMean     FillMethod = "mean"
	FillMedian   FillMethod = "median"
)

// ParseFillMethod валидирует строковое значение метода
func ParseFillMethod(s string) (FillMethod, error) {
	switch FillMethod(s) {
	case FillForward, FillBackward, FillZero, FillMean, FillMedian:
		return FillMethod(s), nil
	default:
		return "", fmt.Errorf("unknown fill method: %q", s)
	}
}

// DedupSummary - сводка Deduplicate
type DedupSummary struct {
	RowsDropped   int
	RowsRemaining int
}

// Deduplicate удаляет строки, полностью совпадающие с более ранними.
// Первое вхождение сохраняется, порядок оставшихся строк не меняется.
// Идемпотентна: повторное применение ничего не удаляет.
func Deduplicate(t *table.Table) (*table.Table, DedupSummary) {
	out := &table.Table{
		Columns: append([]table.Column(nil), t.Columns...),
		Rows:    make([][]table.Cell, 0, len(t.Rows)),
	}

	// xxh3 по ячейкам строки как быстрый предварительный фильтр;
	// при совпадении хеша строки сравниваются поячеечно
	seen := make(map[uint64][][]table.Cell, len(t.Rows))
	dropped := 0

	for _, row := range t.Rows {
		h := hashRow(row)
		dup := false
		for _, prev := range seen[h] {
			if rowsEqual(prev, row) {
				dup = true
				break
			}
		}
		if dup {
			dropped++
			continue
		}
		seen[h] = append(seen[h], row)
		kept := make([]table.Cell, len(row))
		copy(kept, row)
		out.Rows = append(out.Rows, kept)
	}

	return out, DedupSummary{RowsDropped: dropped, RowsRemaining: len(out.Rows)}
}

// hashRow вычисляет xxh3 хеш строки.
// NULL и пустая строка различаются маркером валидности.
func hashRow(row []table.Cell) uint64 {
	var b strings.Builder
	for _, cell := range row {
		if cell.Valid {
			b.WriteByte(1)
			b.WriteString(cell.Value)
		} else {
			b.WriteByte(0)
		}
		b.WriteByte(0x1f) // разделитель ячеек
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

// FillSummary - сводка FillMissing
type FillSummary struct {
	Method           FillMethod
	ValuesFilled     int
	RemainingMissing int
}

// FillMissing заполняет NULL ячейки выбранным методом.
//
//   - forward/backward: ближайшее непустое значение вдоль строк в каждой колонке
//   - zero: "0" во все колонки
//   - mean/median: статистика по непустым значениям числовых колонок;
//     нечисловые колонки не трогаются
func FillMissing(t *table.Table, method FillMethod) (*table.Table, FillSummary, error) {
	out := t.Clone()
	before := out.MissingCount()

	switch method {
	case FillForward:
		fillDirectional(out, false)
	case FillBackward:
		fillDirectional(out, true)
	case FillZero:
		for _, row := range out.Rows {
			for j, cell := range row {
				if !cell.Valid {
					row[j] = table.String("0")
				}
			}
		}
	case FillMean, FillMedian:
		fillStatistic(out, method)
	default:
		return nil, FillSummary{}, fmt.Errorf("unknown fill method: %q", method)
	}

	after := out.MissingCount()
	return out, FillSummary{
		Method:           method,
		ValuesFilled:     before - after,
		RemainingMissing: after,
	}, nil
}

// fillDirectional протягивает ближайшее непустое значение по колонке.
// backward == true протягивает снизу вверх.
func fillDirectional(t *table.Table, backward bool) {
	for j := range t.Columns {
		start, end, step := 0, len(t.Rows), 1
		if backward {
			start, end, step = len(t.Rows)-1, -1, -1
		}
		var last table.Cell
		for i := start; i != end; i += step {
			if t.Rows[i][j].Valid {
				last = t.Rows[i][j]
			} else if last.Valid {
				t.Rows[i][j] = last
			}
		}
	}
}

// fillStatistic заполняет числовые колонки их mean/median
func fillStatistic(t *table.Table, method FillMethod) {
	for j, col := range t.Columns {
		if !col.Kind.IsNumeric() {
			continue
		}

		values := make([]float64, 0, len(t.Rows))
		for _, row := range t.Rows {
			if v, ok := table.ParseFloat(row[j]); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		var fill float64
		if method == FillMean {
			sum := 0.0
			for _, v := range values {
				sum += v
			}
			fill = sum / float64(len(values))
		} else {
			sort.Float64s(values)
			mid := len(values) / 2
			if len(values)%2 == 0 {
				fill = (values[mid-1] + values[mid]) / 2
			} else {
				fill = values[mid]
			}
		}

		// Дробная статистика повышает integer колонку до float:
		// mean двух целых - классический пример. Иначе заполненные
		// ячейки нарушили бы тип колонки.
		if col.Kind == table.KindInteger && fill != float64(int64(fill)) {
			t.Columns[j].Kind = table.KindFloat
		}

		filled := formatStatistic(fill, t.Columns[j].Kind)
		for _, row := range t.Rows {
			if !row[j].Valid {
				row[j] = table.String(filled)
			}
		}
	}
}

// formatStatistic форматирует статистику в представление колонки.
// Integer колонка к этому моменту гарантированно получает целую
// статистику: дробная уже повысила колонку до float.
func formatStatistic(v float64, kind table.Kind) string {
	if kind == table.KindInteger {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
}

// TrimSummary - сводка TrimWhitespace
type TrimSummary struct {
	ColumnsAffected int
	ValuesTrimmed   int
}

// TrimWhitespace удаляет начальные и конечные пробельные символы во всех
// строковых колонках. Считает ячейки, у которых такие символы были.
// Идемпотентна.
func TrimWhitespace(t *table.Table) (*table.Table, TrimSummary) {
	out := t.Clone()
	summary := TrimSummary{}

	for j, col := range out.Columns {
		if col.Kind != table.KindString {
			continue
		}
		summary.ColumnsAffected++
		for _, row := range out.Rows {
			cell := row[j]
			if !cell.Valid {
				continue
			}
			trimmed := strings.TrimSpace(cell.Value)
			if trimmed != cell.Value {
				summary.ValuesTrimmed++
				row[j] = table.String(trimmed)
			}
		}
	}

	return out, summary
}

// RenameSummary - сводка RenameColumns
type RenameSummary struct {
	Renamed map[string]string
}

// RenameColumns применяет все переименования атомарно: либо все, либо
// ни одного. Записи old == new игнорируются. Возвращает
// table.DuplicateColumnError если итоговый набор имен содержит коллизию,
// и workspace-стиль UnknownColumnError при отсутствующей колонке.
func RenameColumns(t *table.Table, mapping map[string]string) (*table.Table, RenameSummary, error) {
	applied := make(map[string]string, len(mapping))
	for old, next := range mapping {
		if old == next {
			continue
		}
		if t.ColumnIndex(old) < 0 {
			return nil, RenameSummary{}, fmt.Errorf("column %q does not exist", old)
		}
		if next == "" {
			return nil, RenameSummary{}, fmt.Errorf("new name for column %q is empty", old)
		}
		applied[old] = next
	}

	// Проверка итогового набора до каких-либо изменений
	final := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		name := col.Name
		if renamed, ok := applied[name]; ok {
			name = renamed
		}
		if final[name] {
			return nil, RenameSummary{}, &table.DuplicateColumnError{Name: name}
		}
		final[name] = true
	}

	out := t.Clone()
	for i := range out.Columns {
		if renamed, ok := applied[out.Columns[i].Name]; ok {
			out.Columns[i].Name = renamed
		}
	}

	return out, RenameSummary{Renamed: applied}, nil
}

// ConvertSummary - сводка ChangeType.
// Частичный успех - нормальное состояние: колонки, не поддавшиеся
// конвертации, остаются в исходном типе и попадают в Failures.
type ConvertSummary struct {
	Attempted  map[string]table.Kind
	Successful int
	Failures   map[string]string // колонка -> причина
}

// ChangeType конвертирует колонки в целевые типы независимо друг от друга.
// Ошибка конвертации одной колонки не прерывает операцию и не влияет
// на остальные. NULL значения сохраняются.
func ChangeType(t *table.Table, mapping map[string]table.Kind) (*table.Table, ConvertSummary, error) {
	summary := ConvertSummary{
		Attempted: make(map[string]table.Kind, len(mapping)),
		Failures:  make(map[string]string),
	}
	for col, kind := range mapping {
		if !kind.IsValid() || kind == table.KindUnknown {
			return nil, ConvertSummary{}, fmt.Errorf("invalid target kind %q for column %q", kind, col)
		}
		if t.ColumnIndex(col) < 0 {
			return nil, ConvertSummary{}, fmt.Errorf("column %q does not exist", col)
		}
		summary.Attempted[col] = kind
	}

	out := t.Clone()

	for name, target := range summary.Attempted {
		j := out.ColumnIndex(name)
		if out.Columns[j].Kind == target {
			summary.Successful++
			continue
		}

		converted := make([]table.Cell, len(out.Rows))
		failure := ""
		for i, row := range out.Rows {
			cell, err := table.Convert(row[j], name, target)
			if err != nil {
				failure = err.Error()
				break
			}
			converted[i] = cell
		}
		if failure != "" {
			// Колонка остается в исходном типе
			summary.Failures[name] = failure
			continue
		}

		for i := range out.Rows {
			out.Rows[i][j] = converted[i]
		}
		out.Columns[j].Kind = target
		summary.Successful++
	}

	return out, summary, nil
}

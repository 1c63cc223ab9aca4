package table

import "fmt"

// Kind представляет тип данных колонки.
// Закрытый набор: никакой динамической интроспекции типов,
// все конвертации выполняются явно через Convert.
type Kind string

const (
	KindInteger   Kind = "integer"
	KindFloat     Kind = "float"
	KindBoolean   Kind = "boolean"
	KindString    Kind = "string"
	KindTimestamp Kind = "timestamp"
	KindUnknown   Kind = "unknown"
)

// IsNumeric проверяет является ли тип числовым
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat
}

// IsValid проверяет что значение входит в закрытый набор типов
func (k Kind) IsValid() bool {
	switch k {
	case KindInteger, KindFloat, KindBoolean, KindString, KindTimestamp, KindUnknown:
		return true
	default:
		return false
	}
}

// Column описывает одну колонку таблицы
type Column struct {
	Name string
	Kind Kind
}

// Cell - одна ячейка таблицы.
// Valid == false означает NULL (отсутствующее значение).
// Пустая строка при Valid == true - валидное значение, НЕ NULL.
type Cell struct {
	Valid bool
	Value string
}

// Null возвращает NULL-ячейку
func Null() Cell {
	return Cell{}
}

// String возвращает валидную ячейку со строковым значением
func String(v string) Cell {
	return Cell{Valid: true, Value: v}
}

// Table представляет таблицу в памяти: упорядоченные типизированные
// колонки и последовательность строк. Инвариант: каждая строка содержит
// ровно len(Columns) ячеек, имена колонок уникальны.
type Table struct {
	Columns []Column
	Rows    [][]Cell
}

// DuplicateColumnError - коллизия имен колонок
type DuplicateColumnError struct {
	Name string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column name: %q", e.Name)
}

// New создает таблицу с проверкой инвариантов:
// уникальные непустые имена колонок, у каждой строки ровно len(columns) ячеек.
func New(columns []Column, rows [][]Cell) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d: name is required", i)
		}
		if seen[col.Name] {
			return nil, &DuplicateColumnError{Name: col.Name}
		}
		seen[col.Name] = true
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i, len(row), len(columns))
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// Empty возвращает таблицу без колонок и строк.
// Используется как well-defined результат для пустого workspace.
func Empty() *Table {
	return &Table{}
}

// NumRows возвращает количество строк
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// NumCols возвращает количество колонок
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// ColumnIndex возвращает индекс колонки по имени, -1 если отсутствует
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames возвращает имена колонок в порядке отображения
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Clone создает глубокую копию таблицы.
// Операторы трансформации никогда не мутируют вход - каждый работает с копией.
func (t *Table) Clone() *Table {
	clone := &Table{
		Columns: make([]Column, len(t.Columns)),
		Rows:    make([][]Cell, len(t.Rows)),
	}
	copy(clone.Columns, t.Columns)
	for i, row := range t.Rows {
		clone.Rows[i] = make([]Cell, len(row))
		copy(clone.Rows[i], row)
	}
	return clone
}

// MissingCount возвращает общее количество NULL ячеек
func (t *Table) MissingCount() int {
	n := 0
	for _, row := range t.Rows {
		for _, cell := range row {
			if !cell.Valid {
				n++
			}
		}
	}
	return n
}

// Equal сравнивает таблицы по колонкам и данным (для тестов и diff)
func Equal(a, b *Table) bool {
	if a.NumCols() != b.NumCols() || a.NumRows() != b.NumRows() {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	for i := range a.Rows {
		for j := range a.Rows[i] {
			if a.Rows[i][j] != b.Rows[i][j] {
				return false
			}
		}
	}
	return true
}

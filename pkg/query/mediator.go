package query

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/DukeAche/Etl-studio/pkg/table"
	_ "modernc.org/sqlite"
)

// ExecutionError - ошибка выполнения SQL запроса.
// Message содержит диагностику движка дословно, без переформулировок.
type ExecutionError struct {
	Query   string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sql error: %s", e.Message)
}

// Result - результат успешного выполнения запроса
type Result struct {
	Table        *table.Table
	RowsReturned int
}

// Mediator выполняет один ad-hoc SQL запрос над снимком датасетов workspace.
//
// Каждый вызов Execute создает свежую SQLite :memory: базу, регистрирует
// в ней все датасеты под их именами, выполняет запрос и уничтожает базу.
// Никакое состояние не протекает между вызовами: каждый вызов независим
// и видит согласованный снимок датасетов на момент вызова.
type Mediator struct {
	validator *Validator // nil = unsafe режим, любые запросы разрешены
}

// NewMediator создает медиатор. safeMode включает валидатор,
// разрешающий только SELECT/WITH запросы.
func NewMediator(safeMode bool) *Mediator {
	m := &Mediator{}
	if safeMode {
		m.validator = NewValidator()
	}
	return m
}

// Execute выполняет запрос над снимком датасетов.
// Снимок не мутируется; неудачный запрос не оставляет следов.
// Контекст отменяет и загрузку датасетов, и сам запрос.
func (m *Mediator) Execute(ctx context.Context, datasets map[string]*table.Table, queryText string) (*Result, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, &ExecutionError{Query: queryText, Message: "empty query"}
	}

	if m.validator != nil {
		if err := m.validator.Validate(queryText); err != nil {
			return nil, &ExecutionError{Query: queryText, Message: err.Error()}
		}
	}

	// Свежая эфемерная база на один вызов
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open query engine: %w", err)
	}
	defer db.Close()

	// :memory: база живет в рамках одного соединения
	db.SetMaxOpenConns(1)

	for name, t := range datasets {
		if err := registerTable(ctx, db, name, t); err != nil {
			return nil, fmt.Errorf("failed to register dataset %q: %w", name, err)
		}
	}

	rows, err := db.QueryContext(ctx, queryText)
	if err != nil {
		return nil, &ExecutionError{Query: queryText, Message: err.Error()}
	}
	defer rows.Close()

	result, err := materialize(rows)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// registerTable создает таблицу под именем датасета и заливает данные
// prepared statement-ом внутри одной транзакции
func registerTable(ctx context.Context, db *sql.DB, name string, t *table.Table) error {
	if t.NumCols() == 0 {
		return fmt.Errorf("dataset has no columns")
	}

	ddl := createTableDDL(name, t.Columns)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	if t.NumRows() == 0 {
		return nil
	}

	placeholders := make([]string, t.NumCols())
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		quoteIdent(name), strings.Join(placeholders, ", "))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, t.NumCols())
	for i, row := range t.Rows {
		for j, cell := range row {
			args[j] = bindValue(cell, t.Columns[j].Kind)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// createTableDDL генерирует CREATE TABLE под схему датасета
func createTableDDL(name string, columns []table.Column) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = quoteIdent(col.Name) + " " + sqliteType(col.Kind)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
}

// sqliteType конвертирует Kind в объявленный SQLite тип.
// Объявления BOOLEAN/TIMESTAMP сохраняют исходный Kind в метаданных
// колонок результата при SELECT без выражений.
func sqliteType(k table.Kind) string {
	switch k {
	case table.KindInteger:
		return "INTEGER"
	case table.KindFloat:
		return "REAL"
	case table.KindBoolean:
		return "BOOLEAN"
	case table.KindTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// bindValue конвертирует ячейку в нативное значение для драйвера.
// NULL ячейки передаются как nil, boolean хранится как 0/1.
func bindValue(cell table.Cell, kind table.Kind) any {
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
		if strings.EqualFold(cell.Value, "true") || cell.Value == "1" {
			return int64(1)
		}
		return int64(0)
	}
	return cell.Value
}

// materialize читает результат запроса в новую таблицу
func materialize(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	kinds := make([]table.Kind, len(columns))
	for i, ct := range columnTypes {
		kinds[i] = kindFromSQLite(ct.DatabaseTypeName())
	}

	var data [][]table.Cell
	scanArgs := make([]any, len(columns))
	for i := range scanArgs {
		scanArgs[i] = new(sql.NullString)
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]table.Cell, len(columns))
		for i, arg := range scanArgs {
			ns := arg.(*sql.NullString)
			if !ns.Valid {
				row[i] = table.Null()
				continue
			}
			v := ns.String
			if kinds[i] == table.KindBoolean {
				// boolean хранится в движке как 0/1
				if v == "1" {
					v = "true"
				} else if v == "0" {
					v = "false"
				}
			}
			row[i] = table.String(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Message: err.Error()}
	}

	cols := make([]table.Column, len(columns))
	for i, name := range columns {
		cols[i] = table.Column{Name: name, Kind: kinds[i]}
	}
	dedupeColumnNames(cols)

	// Выражения без объявленного типа - выводим тип по данным
	for i := range cols {
		if cols[i].Kind == table.KindUnknown {
			cells := make([]table.Cell, 0, len(data))
			for _, row := range data {
				cells = append(cells, row[i])
			}
			cols[i].Kind = table.InferKind(cells)
			if cols[i].Kind == table.KindUnknown {
				cols[i].Kind = table.KindString
			}
		}
	}

	result, err := table.New(cols, data)
	if err != nil {
		return nil, fmt.Errorf("failed to build result table: %w", err)
	}
	return &Result{Table: result, RowsReturned: len(data)}, nil
}

// kindFromSQLite конвертирует объявленный SQLite тип обратно в Kind.
// Пустое имя типа (выражение, агрегат) дает unknown - тип будет выведен по данным.
func kindFromSQLite(sqliteType string) table.Kind {
	s := strings.ToUpper(sqliteType)
	switch {
	case s == "":
		return table.KindUnknown
	case strings.Contains(s, "BOOL"):
		return table.KindBoolean
	case strings.Contains(s, "INT"):
		return table.KindInteger
	case strings.Contains(s, "REAL"), strings.Contains(s, "FLOA"), strings.Contains(s, "DOUB"):
		return table.KindFloat
	case strings.Contains(s, "TIMESTAMP"), strings.Contains(s, "DATE"), strings.Contains(s, "TIME"):
		return table.KindTimestamp
	default:
		return table.KindString
	}
}

// dedupeColumnNames переименовывает дубликаты имен в результате
// (JOIN двух таблиц с одинаковыми колонками): id, id -> id, id_1
func dedupeColumnNames(cols []table.Column) {
	seen := make(map[string]int, len(cols))
	for i := range cols {
		name := cols[i].Name
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			cols[i].Name = fmt.Sprintf("%s_%d", name, n)
			seen[cols[i].Name] = 1
			continue
		}
		seen[name] = 1
	}
}

// quoteIdent экранирует идентификатор для SQLite.
// Имена датасетов задает пользователь - без кавычек имя с пробелом
// или кавычкой ломает DDL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

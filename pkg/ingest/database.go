package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	// Регистрация драйверов поддерживаемых СУБД
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// DBConfig - подключение к внешней базе данных
type DBConfig struct {
	// Type - тип СУБД: "sqlite", "postgres", "mysql", "sqlserver"
	Type string `yaml:"type"`
	// DSN - строка подключения в формате драйвера
	DSN string `yaml:"dsn"`
}

// driverNames - тип СУБД -> имя зарегистрированного драйвера
var driverNames = map[string]string{
	"sqlite":    "sqlite",
	"postgres":  "pgx",
	"mysql":     "mysql",
	"sqlserver": "sqlserver",
}

// SupportedDatabases возвращает список поддерживаемых типов СУБД
func SupportedDatabases() []string {
	return []string{"sqlite", "postgres", "mysql", "sqlserver"}
}

// Validate проверяет конфигурацию подключения
func (c DBConfig) Validate() error {
	if _, ok := driverNames[c.Type]; !ok {
		return fmt.Errorf("unknown database type: %s (supported: %s)",
			c.Type, strings.Join(SupportedDatabases(), ", "))
	}
	if c.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	return nil
}

// FromDatabase выполняет запрос во внешней базе и материализует результат
// в таблицу. Соединение открывается на время вызова и закрывается по выходу.
func FromDatabase(ctx context.Context, cfg DBConfig, query string) (*table.Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open(driverNames[cfg.Type], cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", cfg.Type, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		// Диагностика движка без изменений
		return nil, &DecodeError{Format: FormatDatabase, Message: err.Error()}
	}
	defer rows.Close()

	return materialize(rows)
}

// materialize переводит database/sql результат в таблицу.
// Тип колонки берется из объявленного типа СУБД; колонки без
// объявленного типа доопределяются по содержимому.
func materialize(rows *sql.Rows) (*table.Table, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	cols := make([]table.Column, len(names))
	for j, name := range names {
		cols[j] = table.Column{Name: name, Kind: kindFromSQLType(types[j].DatabaseTypeName())}
	}

	var data [][]table.Cell
	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for j := range values {
		ptrs[j] = &values[j]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]table.Cell, len(names))
		for j, v := range values {
			row[j] = cellFromValue(v, cols[j].Kind)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Колонки без объявленного типа - по содержимому
	for j := range cols {
		if cols[j].Kind != table.KindUnknown {
			continue
		}
		column := make([]table.Cell, len(data))
		for i := range data {
			column[i] = data[i][j]
		}
		cols[j].Kind = table.InferKind(column)
	}

	return table.New(cols, data)
}

// kindFromSQLType сводит объявленные типы четырех СУБД к типам колонок
func kindFromSQLType(sqlType string) table.Kind {
	t := strings.ToUpper(sqlType)
	// Отбрасываем размерность: VARCHAR(100), DECIMAL(10,2)
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}

	switch t {
	case "":
		return table.KindUnknown
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT", "INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL":
		return table.KindInteger
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "NUMERIC", "DECIMAL", "MONEY":
		return table.KindFloat
	case "BOOL", "BOOLEAN", "BIT":
		return table.KindBoolean
	case "DATE", "DATETIME", "DATETIME2", "TIMESTAMP", "TIMESTAMPTZ", "SMALLDATETIME":
		return table.KindTimestamp
	default:
		return table.KindString
	}
}

// cellFromValue форматирует значение драйвера в каноническую строку
func cellFromValue(v any, kind table.Kind) table.Cell {
	switch val := v.(type) {
	case nil:
		return table.Null()
	case []byte:
		return normalizeCell(string(val), kind)
	case string:
		return normalizeCell(val, kind)
	case int64:
		if kind == table.KindBoolean {
			return table.String(strconv.FormatBool(val != 0))
		}
		return table.String(strconv.FormatInt(val, 10))
	case float64:
		return table.String(strconv.FormatFloat(val, 'g', -1, 64))
	case bool:
		return table.String(strconv.FormatBool(val))
	case time.Time:
		return table.String(val.Format(table.TimestampLayout))
	default:
		return table.String(fmt.Sprintf("%v", val))
	}
}

// normalizeCell приводит строковое значение драйвера к каноническому виду
// для булевых колонок (mysql отдает BIT/TINYINT как байты)
func normalizeCell(s string, kind table.Kind) table.Cell {
	if kind == table.KindBoolean {
		switch s {
		case "0", "\x00":
			return table.String("false")
		case "1", "\x01":
			return table.String("true")
		}
	}
	return table.String(s)
}

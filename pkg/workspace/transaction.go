package workspace

import (
	"time"
	"unicode/utf8"
)

// OperationKind - тип операции в журнале workspace
type OperationKind string

const (
	OpDataIngestion     OperationKind = "Data Ingestion"
	OpDatabaseIngestion OperationKind = "Database Ingestion"
	OpSQLQuery          OperationKind = "SQL Query"
	OpDropDuplicates    OperationKind = "Drop Duplicates"
	OpFillMissing       OperationKind = "Fill Missing Values"
	OpTrimWhitespace    OperationKind = "Trim Whitespace"
	OpRenameColumns     OperationKind = "Rename Columns"
	OpTypeConversion    OperationKind = "Type Conversion"
	OpDataExport        OperationKind = "Data Export"
)

// QueryTruncateLen - SQL в details журнала обрезается до этой длины
const QueryTruncateLen = 100

// Details - свободная структура деталей операции.
// Обязательные поля зависят от OperationKind, см. конструкторы ниже.
type Details map[string]any

func (d Details) clone() Details {
	out := make(Details, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Transaction - неизменяемая запись журнала операций.
// После добавления никогда не мутируется и не переупорядочивается.
type Transaction struct {
	Timestamp time.Time     `json:"timestamp"`
	Kind      OperationKind `json:"operation"`
	Details   Details       `json:"details"`
}

// QueryRecord - запись журнала SQL запросов
type QueryRecord struct {
	Query        string    `json:"query"`
	Timestamp    time.Time `json:"timestamp"`
	RowsReturned int       `json:"rows_returned"`
}

// TruncateQuery обрезает текст запроса для журнала операций.
// Срез отступает к началу руны, чтобы не разрезать UTF-8 символ.
func TruncateQuery(query string) string {
	if len(query) <= QueryTruncateLen {
		return query
	}
	cut := QueryTruncateLen
	for cut > 0 && !utf8.RuneStart(query[cut]) {
		cut--
	}
	return query[:cut] + "..."
}

// Конструкторы details для каждого вида операции.
// Держат обязательные поля в одном месте вместо рассыпанных map-литералов
// по обработчикам.

// IngestionDetails - детали загрузки файла
func IngestionDetails(source string, rows int, columns []string) Details {
	return Details{"source": source, "rows": rows, "columns": columns}
}

// DatabaseIngestionDetails - детали загрузки из БД
func DatabaseIngestionDetails(source, query string, rows int, columns []string) Details {
	return Details{
		"source":  source,
		"query":   TruncateQuery(query),
		"rows":    rows,
		"columns": columns,
	}
}

// SQLQueryDetails - детали сохранения результата запроса
func SQLQueryDetails(query, resultName string, rowsReturned int) Details {
	return Details{
		"query":         TruncateQuery(query),
		"result_name":   resultName,
		"rows_returned": rowsReturned,
	}
}

// DropDuplicatesDetails - детали дедупликации
func DropDuplicatesDetails(rowsDropped, remainingRows int) Details {
	return Details{"rows_dropped": rowsDropped, "remaining_rows": remainingRows}
}

// FillMissingDetails - детали заполнения пропусков
func FillMissingDetails(method string, valuesFilled, remainingMissing int) Details {
	return Details{
		"method":            method,
		"values_filled":     valuesFilled,
		"remaining_missing": remainingMissing,
	}
}

// TrimWhitespaceDetails - детали удаления пробелов
func TrimWhitespaceDetails(columnsAffected, valuesTrimmed int) Details {
	return Details{"columns_affected": columnsAffected, "values_trimmed": valuesTrimmed}
}

// RenameColumnsDetails - детали переименования колонок
func RenameColumnsDetails(renamed map[string]string) Details {
	return Details{"renamed_columns": renamed}
}

// TypeConversionDetails - детали конвертации типов
func TypeConversionDetails(conversions map[string]string, successful int) Details {
	return Details{"conversions": conversions, "successful_conversions": successful}
}

// DataExportDetails - детали экспорта
func DataExportDetails(format, filename, compression string, rows, columns int) Details {
	return Details{
		"format":      format,
		"filename":    filename,
		"compression": compression,
		"rows":        rows,
		"columns":     columns,
	}
}

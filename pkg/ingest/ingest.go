// Package ingest декодирует внешние источники данных в таблицы.
//
// Поддерживаемые форматы файлов: CSV, JSON (records), Excel, Parquet.
// Типы колонок CSV/Excel/JSON выводятся по содержимому, Parquet несет
// типы в схеме файла.
package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// Format - формат источника данных
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatExcel   Format = "excel"
	FormatParquet Format = "parquet"

	// FormatDatabase - источник-СУБД, см. FromDatabase
	FormatDatabase Format = "database"
)

// DecodeError - ошибка декодирования источника.
// Message содержит диагностику исходного парсера без изменений.
type DecodeError struct {
	Format  Format
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Format, e.Message)
}

// FormatForFile определяет формат по расширению имени файла
func FormatForFile(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx", ".xls":
		return FormatExcel, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported file extension: %s", filepath.Ext(name))
	}
}

// Decode читает источник в таблицу согласно формату
func Decode(r io.Reader, format Format) (*table.Table, error) {
	switch format {
	case FormatCSV:
		return DecodeCSV(r)
	case FormatJSON:
		return DecodeJSON(r)
	case FormatExcel:
		return DecodeExcel(r)
	case FormatParquet:
		return DecodeParquet(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

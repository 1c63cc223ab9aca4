// Package export кодирует таблицы в файлы выгрузки.
//
// Форматы: CSV (с опциональным сжатием), JSON, Excel, Parquet.
// Каждая выгрузка возвращает готовый артефакт с именем файла,
// content type и контрольной суммой содержимого.
package export

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// Format - формат выгрузки
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatExcel   Format = "excel"
	FormatParquet Format = "parquet"
)

// Compression - сжатие CSV выгрузки
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZip  Compression = "zip"
	CompressionBz2  Compression = "bz2"
	CompressionXz   Compression = "xz"
)

// ParseCompression валидирует строковое значение сжатия.
// Пустая строка означает отсутствие сжатия.
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip, CompressionZip, CompressionBz2, CompressionXz:
		return Compression(s), nil
	default:
		return "", fmt.Errorf("unknown compression: %q", s)
	}
}

// Result - готовый артефакт выгрузки
type Result struct {
	// Filename - имя файла с расширением формата и сжатия
	Filename string
	// ContentType - MIME тип для отдачи по HTTP
	ContentType string
	// Data - байты артефакта
	Data []byte
	// Checksum - xxh3 содержимого в hex
	Checksum string
}

// Options - параметры выгрузки
type Options struct {
	// Format - формат файла
	Format Format
	// Compression - сжатие, применяется только к CSV
	Compression Compression
	// BaseName - имя файла без расширения
	BaseName string
}

// Encode выгружает таблицу согласно опциям
func Encode(tbl *table.Table, opts Options) (*Result, error) {
	if opts.BaseName == "" {
		opts.BaseName = "export"
	}
	if opts.Compression == "" {
		opts.Compression = CompressionNone
	}
	if opts.Compression != CompressionNone && opts.Format != FormatCSV {
		return nil, fmt.Errorf("compression %s is only supported for csv export", opts.Compression)
	}

	switch opts.Format {
	case FormatCSV:
		return EncodeCSV(tbl, opts.BaseName, opts.Compression)
	case FormatJSON:
		return EncodeJSON(tbl, opts.BaseName)
	case FormatExcel:
		return EncodeExcel(tbl, opts.BaseName)
	case FormatParquet:
		return EncodeParquet(tbl, opts.BaseName)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", opts.Format)
	}
}

// checksum вычисляет xxh3 содержимого артефакта
func checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

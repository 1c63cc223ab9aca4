package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// EncodeCSV выгружает таблицу в CSV с заголовком.
// NULL записывается пустой ячейкой: после повторного импорта
// различие между NULL и пустой строкой теряется.
func EncodeCSV(tbl *table.Table, baseName string, compression Compression) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(tbl.ColumnNames()); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, tbl.NumCols())
	for _, row := range tbl.Rows {
		for j, cell := range row {
			if cell.Valid {
				record[j] = cell.Value
			} else {
				record[j] = ""
			}
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return compressCSV(buf.Bytes(), baseName, compression)
}

// compressCSV оборачивает CSV в выбранный контейнер сжатия
func compressCSV(data []byte, baseName string, compression Compression) (*Result, error) {
	plainName := baseName + ".csv"

	var (
		out         bytes.Buffer
		filename    string
		contentType string
	)

	switch compression {
	case CompressionNone:
		return &Result{
			Filename:    plainName,
			ContentType: "text/csv",
			Data:        data,
			Checksum:    checksum(data),
		}, nil

	case CompressionGzip:
		filename, contentType = plainName+".gz", "application/gzip"
		zw := gzip.NewWriter(&out)
		if err := writeAndClose(zw, data); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}

	case CompressionZip:
		filename, contentType = baseName+".zip", "application/zip"
		zw := zip.NewWriter(&out)
		zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, flate.BestCompression)
		})
		entry, err := zw.Create(plainName)
		if err != nil {
			return nil, fmt.Errorf("zip: %w", err)
		}
		if _, err := entry.Write(data); err != nil {
			return nil, fmt.Errorf("zip: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("zip: %w", err)
		}

	case CompressionBz2:
		filename, contentType = plainName+".bz2", "application/x-bzip2"
		zw, err := bzip2.NewWriter(&out, &bzip2.WriterConfig{Level: 6})
		if err != nil {
			return nil, fmt.Errorf("bzip2: %w", err)
		}
		if err := writeAndClose(zw, data); err != nil {
			return nil, fmt.Errorf("bzip2: %w", err)
		}

	case CompressionXz:
		filename, contentType = plainName+".xz", "application/x-xz"
		zw, err := xz.NewWriter(&out)
		if err != nil {
			return nil, fmt.Errorf("xz: %w", err)
		}
		if err := writeAndClose(zw, data); err != nil {
			return nil, fmt.Errorf("xz: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown compression: %q", compression)
	}

	return &Result{
		Filename:    filename,
		ContentType: contentType,
		Data:        out.Bytes(),
		Checksum:    checksum(out.Bytes()),
	}, nil
}

func writeAndClose(w io.WriteCloser, data []byte) error {
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

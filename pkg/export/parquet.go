package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// EncodeParquet выгружает таблицу в Parquet со snappy сжатием.
// Типы колонок переносятся в схему файла без потерь.
func EncodeParquet(tbl *table.Table, baseName string) (*Result, error) {
	fields := make([]arrow.Field, tbl.NumCols())
	for j, col := range tbl.Columns {
		fields[j] = arrow.Field{Name: col.Name, Type: arrowType(col.Kind), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()

	for j, col := range tbl.Columns {
		for _, row := range tbl.Rows {
			if err := appendCell(bldr.Field(j), row[j], col); err != nil {
				return nil, err
			}
		}
	}

	rec := bldr.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w, err := pqarrow.NewFileWriter(
		schema,
		&buf,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)),
		pqarrow.DefaultWriterProps(),
	)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("write parquet: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet: %w", err)
	}

	return &Result{
		Filename:    baseName + ".parquet",
		ContentType: "application/octet-stream",
		Data:        buf.Bytes(),
		Checksum:    checksum(buf.Bytes()),
	}, nil
}

// arrowType переводит тип колонки в тип Arrow
func arrowType(kind table.Kind) arrow.DataType {
	switch kind {
	case table.KindInteger:
		return arrow.PrimitiveTypes.Int64
	case table.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case table.KindBoolean:
		return arrow.FixedWidthTypes.Boolean
	case table.KindTimestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	default:
		return arrow.BinaryTypes.String
	}
}

// appendCell пишет ячейку в билдер колонки
func appendCell(b array.Builder, cell table.Cell, col table.Column) error {
	if !cell.Valid {
		b.AppendNull()
		return nil
	}

	fail := func(reason string) error {
		return fmt.Errorf("column %q: cannot encode %q as %s: %s", col.Name, cell.Value, col.Kind, reason)
	}

	raw := strings.TrimSpace(cell.Value)

	switch bldr := b.(type) {
	case *array.Int64Builder:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fail("invalid integer value")
		}
		bldr.Append(v)
	case *array.Float64Builder:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fail("invalid float value")
		}
		bldr.Append(v)
	case *array.BooleanBuilder:
		v, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return fail("invalid boolean value")
		}
		bldr.Append(v)
	case *array.TimestampBuilder:
		t, err := time.ParseInLocation(table.TimestampLayout, raw, time.UTC)
		if err != nil {
			t, err = time.ParseInLocation("2006-01-02", raw, time.UTC)
		}
		if err != nil {
			return fail("unrecognized timestamp format")
		}
		bldr.Append(arrow.Timestamp(t.UnixMicro()))
	case *array.StringBuilder:
		bldr.Append(cell.Value)
	default:
		return fail("unsupported builder type")
	}
	return nil
}

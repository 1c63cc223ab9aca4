package ingest

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

// DecodeParquet читает Parquet файл целиком.
// В отличие от текстовых форматов Parquet несет схему: типы колонок
// берутся из нее, а не выводятся по содержимому.
func DecodeParquet(r io.Reader) (*table.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Format: FormatParquet, Message: err.Error()}
	}

	arrowTable, err := pqarrow.ReadTable(
		context.Background(),
		bytes.NewReader(raw),
		parquet.NewReaderProperties(memory.DefaultAllocator),
		pqarrow.ArrowReadProperties{},
		memory.DefaultAllocator,
	)
	if err != nil {
		return nil, &DecodeError{Format: FormatParquet, Message: err.Error()}
	}
	defer arrowTable.Release()

	numCols := int(arrowTable.NumCols())
	numRows := int(arrowTable.NumRows())

	cols := make([]table.Column, numCols)
	rows := make([][]table.Cell, numRows)
	for i := range rows {
		rows[i] = make([]table.Cell, numCols)
	}

	for j := 0; j < numCols; j++ {
		col := arrowTable.Column(j)
		cols[j] = table.Column{
			Name: col.Name(),
			Kind: kindFromArrow(col.DataType()),
		}

		i := 0
		for _, chunk := range col.Data().Chunks() {
			for k := 0; k < chunk.Len(); k++ {
				if chunk.IsNull(k) {
					rows[i][j] = table.Null()
				} else {
					rows[i][j] = table.String(arrowValue(chunk, k))
				}
				i++
			}
		}
	}

	tbl, err := table.New(cols, rows)
	if err != nil {
		return nil, &DecodeError{Format: FormatParquet, Message: err.Error()}
	}
	return tbl, nil
}

// kindFromArrow переводит тип Arrow в тип колонки
func kindFromArrow(dt arrow.DataType) table.Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return table.KindInteger
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return table.KindFloat
	case arrow.BOOL:
		return table.KindBoolean
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return table.KindTimestamp
	default:
		return table.KindString
	}
}

// arrowValue форматирует значение ячейки Arrow в каноническую строку
func arrowValue(arr arrow.Array, i int) string {
	switch a := arr.(type) {
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC().Format(table.TimestampLayout)
	case *array.Date32:
		return a.Value(i).ToTime().UTC().Format(table.TimestampLayout)
	case *array.Date64:
		return a.Value(i).ToTime().UTC().Format(table.TimestampLayout)
	case *array.Float64:
		return strconv.FormatFloat(a.Value(i), 'g', -1, 64)
	case *array.Float32:
		return strconv.FormatFloat(float64(a.Value(i)), 'g', -1, 32)
	default:
		return arr.ValueStr(i)
	}
}

package ingest

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

func TestDecodeCSV(t *testing.T) {
	input := "id,price,name,active\n1,9.99,alice,true\n2,,bob,false\n3,5.00,,true\n"

	tbl, err := DecodeCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}

	wantKinds := map[string]table.Kind{
		"id":     table.KindInteger,
		"price":  table.KindFloat,
		"name":   table.KindString,
		"active": table.KindBoolean,
	}
	for _, col := range tbl.Columns {
		if col.Kind != wantKinds[col.Name] {
			t.Errorf("column %s kind = %s, want %s", col.Name, col.Kind, wantKinds[col.Name])
		}
	}
	if tbl.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", tbl.NumRows())
	}
	if tbl.Rows[1][1].Valid {
		t.Error("empty CSV cell must decode as NULL")
	}
	if tbl.Rows[2][2].Valid {
		t.Error("empty CSV cell must decode as NULL")
	}
}

func TestDecodeCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty input", ""},
		{"Unbalanced quotes", "a,b\n\"broken,1\n2,3\n\"x,y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCSV(strings.NewReader(tt.input))
			var dec *DecodeError
			if !errors.As(err, &dec) {
				t.Fatalf("err = %v, want DecodeError", err)
			}
			if dec.Message == "" {
				t.Error("DecodeError.Message is empty")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	input := `[
		{"id": 1, "name": "alice", "score": 9.5},
		{"id": 2, "name": null},
		{"id": 3, "name": "carol", "extra": "x"}
	]`

	tbl, err := DecodeJSON(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}

	if tbl.NumRows() != 3 || tbl.NumCols() != 4 {
		t.Fatalf("shape = %dx%d, want 3x4", tbl.NumRows(), tbl.NumCols())
	}
	id := tbl.ColumnIndex("id")
	if tbl.Columns[id].Kind != table.KindInteger {
		t.Errorf("id kind = %s, want integer", tbl.Columns[id].Kind)
	}
	name := tbl.ColumnIndex("name")
	if tbl.Rows[1][name].Valid {
		t.Error("null value must decode as NULL")
	}
	extra := tbl.ColumnIndex("extra")
	if tbl.Rows[0][extra].Valid {
		t.Error("missing key must decode as NULL")
	}
}

func TestDecodeJSONRejectsNested(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`[{"a": {"nested": 1}}]`))
	var dec *DecodeError
	if !errors.As(err, &dec) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}

func TestDecodeExcel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	data := [][]any{
		{"id", "name"},
		{"1", "alice"},
		{"2", ""},
	}
	for i, row := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	tbl, err := DecodeExcel(&buf)
	if err != nil {
		t.Fatalf("DecodeExcel: %v", err)
	}
	if tbl.NumRows() != 2 || tbl.NumCols() != 2 {
		t.Fatalf("shape = %dx%d, want 2x2", tbl.NumRows(), tbl.NumCols())
	}
	if tbl.Columns[0].Kind != table.KindInteger {
		t.Errorf("id kind = %s, want integer", tbl.Columns[0].Kind)
	}
	if tbl.Rows[1][1].Valid {
		t.Error("empty Excel cell must decode as NULL")
	}
}

func TestFormatForFile(t *testing.T) {
	tests := []struct {
		file    string
		want    Format
		wantErr bool
	}{
		{"data.csv", FormatCSV, false},
		{"Data.CSV", FormatCSV, false},
		{"report.xlsx", FormatExcel, false},
		{"events.parquet", FormatParquet, false},
		{"records.json", FormatJSON, false},
		{"notes.txt", "", true},
	}
	for _, tt := range tests {
		got, err := FormatForFile(tt.file)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatForFile(%q) err = %v", tt.file, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatForFile(%q) = %s, want %s", tt.file, got, tt.want)
		}
	}
}

func TestFromDatabaseSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE users (id INTEGER, name TEXT, balance REAL);
		INSERT INTO users VALUES (1, 'alice', 10.5), (2, NULL, 0);`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	db.Close()

	tbl, err := FromDatabase(context.Background(), DBConfig{Type: "sqlite", DSN: path}, "SELECT * FROM users ORDER BY id")
	if err != nil {
		t.Fatalf("FromDatabase: %v", err)
	}

	if tbl.NumRows() != 2 {
		t.Fatalf("NumRows = %d, want 2", tbl.NumRows())
	}
	if tbl.Columns[0].Kind != table.KindInteger {
		t.Errorf("id kind = %s, want integer", tbl.Columns[0].Kind)
	}
	if tbl.Columns[2].Kind != table.KindFloat {
		t.Errorf("balance kind = %s, want float", tbl.Columns[2].Kind)
	}
	if tbl.Rows[1][1].Valid {
		t.Error("SQL NULL must decode as NULL cell")
	}
	if tbl.Rows[0][1].Value != "alice" {
		t.Errorf("name = %q", tbl.Rows[0][1].Value)
	}
}

func TestDBConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DBConfig
		wantErr bool
	}{
		{"Valid sqlite", DBConfig{Type: "sqlite", DSN: "file.db"}, false},
		{"Valid postgres", DBConfig{Type: "postgres", DSN: "postgres://u:p@h/db"}, false},
		{"Unknown type", DBConfig{Type: "oracle", DSN: "x"}, true},
		{"Missing DSN", DBConfig{Type: "mysql"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

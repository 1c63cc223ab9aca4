package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	kgzip "github.com/klauspost/compress/gzip"

	"github.com/DukeAche/Etl-studio/pkg/ingest"
	"github.com/DukeAche/Etl-studio/pkg/table"
	"github.com/DukeAche/Etl-studio/pkg/workspace"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		[]table.Column{
			{Name: "id", Kind: table.KindInteger},
			{Name: "name", Kind: table.KindString},
			{Name: "score", Kind: table.KindFloat},
			{Name: "active", Kind: table.KindBoolean},
		},
		[][]table.Cell{
			{table.String("1"), table.String("alice"), table.String("9.5"), table.String("true")},
			{table.String("2"), table.Null(), table.Null(), table.String("false")},
		},
	)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}

func TestEncodeCSVPlain(t *testing.T) {
	res, err := EncodeCSV(sampleTable(t), "data", CompressionNone)
	if err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}

	want := "id,name,score,active\n1,alice,9.5,true\n2,,,false\n"
	if string(res.Data) != want {
		t.Errorf("csv = %q, want %q", res.Data, want)
	}
	if res.Filename != "data.csv" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if res.Checksum == "" {
		t.Error("Checksum is empty")
	}

	// Детерминизм: повторная выгрузка дает те же байты
	res2, err := EncodeCSV(sampleTable(t), "data", CompressionNone)
	if err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}
	if res2.Checksum != res.Checksum {
		t.Error("same input produced different checksums")
	}
}

func TestEncodeCSVGzip(t *testing.T) {
	res, err := EncodeCSV(sampleTable(t), "data", CompressionGzip)
	if err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}
	if res.Filename != "data.csv.gz" {
		t.Errorf("Filename = %q", res.Filename)
	}

	zr, err := kgzip.NewReader(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	plain, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	if !strings.HasPrefix(string(plain), "id,name,score,active\n") {
		t.Errorf("decompressed = %q", plain)
	}
}

func TestEncodeCSVZip(t *testing.T) {
	res, err := EncodeCSV(sampleTable(t), "data", CompressionZip)
	if err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}
	if res.Filename != "data.zip" {
		t.Errorf("Filename = %q", res.Filename)
	}

	zr, err := zip.NewReader(bytes.NewReader(res.Data), int64(len(res.Data)))
	if err != nil {
		t.Fatalf("zip reader: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "data.csv" {
		t.Fatalf("archive entries: %v", zr.File)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	plain, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if !strings.Contains(string(plain), "alice") {
		t.Errorf("decompressed = %q", plain)
	}
}

func TestEncodeCSVCompressionNames(t *testing.T) {
	tests := []struct {
		compression Compression
		wantFile    string
	}{
		{CompressionBz2, "data.csv.bz2"},
		{CompressionXz, "data.csv.xz"},
	}
	for _, tt := range tests {
		res, err := EncodeCSV(sampleTable(t), "data", tt.compression)
		if err != nil {
			t.Fatalf("EncodeCSV(%s): %v", tt.compression, err)
		}
		if res.Filename != tt.wantFile {
			t.Errorf("Filename = %q, want %q", res.Filename, tt.wantFile)
		}
		if len(res.Data) == 0 {
			t.Errorf("%s produced empty artifact", tt.compression)
		}
	}
}

func TestEncodeJSON(t *testing.T) {
	res, err := EncodeJSON(sampleTable(t), "data")
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(res.Data, &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0]["id"] != float64(1) {
		t.Errorf("id = %v, want JSON number", records[0]["id"])
	}
	if records[0]["active"] != true {
		t.Errorf("active = %v, want JSON bool", records[0]["active"])
	}
	if v, ok := records[1]["name"]; !ok || v != nil {
		t.Errorf("NULL cell = %v, want JSON null", v)
	}
	if !strings.Contains(string(res.Data), "\n  ") {
		t.Error("output is not indented with two spaces")
	}
}

func TestEncodeRejectsCompressionForNonCSV(t *testing.T) {
	_, err := Encode(sampleTable(t), Options{Format: FormatJSON, Compression: CompressionGzip})
	if err == nil {
		t.Fatal("expected error for compressed json export")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	src := sampleTable(t)
	res, err := EncodeCSV(src, "data", CompressionNone)
	if err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}

	back, err := ingest.DecodeCSV(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}

	if back.NumRows() != src.NumRows() || back.NumCols() != src.NumCols() {
		t.Fatalf("shape %dx%d, want %dx%d", back.NumRows(), back.NumCols(), src.NumRows(), src.NumCols())
	}
	for j, col := range src.Columns {
		if back.Columns[j].Name != col.Name {
			t.Errorf("column %d = %q, want %q", j, back.Columns[j].Name, col.Name)
		}
	}
	// CSV не различает NULL и пустую строку: NULL возвращается как NULL
	if back.Rows[1][1].Valid {
		t.Error("NULL cell did not survive round trip")
	}
	if back.Rows[0][1].Value != "alice" {
		t.Errorf("value = %q", back.Rows[0][1].Value)
	}
}

func TestEncodeExcelRoundTrip(t *testing.T) {
	res, err := EncodeExcel(sampleTable(t), "data")
	if err != nil {
		t.Fatalf("EncodeExcel: %v", err)
	}
	if res.Filename != "data.xlsx" {
		t.Errorf("Filename = %q", res.Filename)
	}

	back, err := ingest.DecodeExcel(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("DecodeExcel: %v", err)
	}
	if back.NumRows() != 2 {
		t.Fatalf("NumRows = %d, want 2", back.NumRows())
	}
	if back.Rows[0][1].Value != "alice" {
		t.Errorf("value = %q", back.Rows[0][1].Value)
	}
}

func TestEncodeParquetRoundTrip(t *testing.T) {
	res, err := EncodeParquet(sampleTable(t), "data")
	if err != nil {
		t.Fatalf("EncodeParquet: %v", err)
	}
	if res.Filename != "data.parquet" {
		t.Errorf("Filename = %q", res.Filename)
	}

	back, err := ingest.DecodeParquet(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("DecodeParquet: %v", err)
	}

	// Parquet несет схему: типы выживают в отличие от CSV
	wantKinds := []table.Kind{table.KindInteger, table.KindString, table.KindFloat, table.KindBoolean}
	for j, want := range wantKinds {
		if back.Columns[j].Kind != want {
			t.Errorf("column %s kind = %s, want %s", back.Columns[j].Name, back.Columns[j].Kind, want)
		}
	}
	if back.Rows[1][2].Valid {
		t.Error("NULL cell did not survive round trip")
	}
	if back.Rows[0][0].Value != "1" {
		t.Errorf("id = %q", back.Rows[0][0].Value)
	}
	if back.Rows[0][3].Value != "true" {
		t.Errorf("active = %q", back.Rows[0][3].Value)
	}
}

func TestEncodeTransactionLog(t *testing.T) {
	history := []workspace.Transaction{
		{
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Kind:      workspace.OpDataIngestion,
			Details:   workspace.IngestionDetails("users.csv", 10, []string{"id", "name"}),
		},
		{
			Timestamp: time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
			Kind:      workspace.OpDropDuplicates,
			Details:   workspace.DropDuplicatesDetails(2, 8),
		},
	}

	res, err := EncodeTransactionLog(history, "transaction_log")
	if err != nil {
		t.Fatalf("EncodeTransactionLog: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(res.Data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if lines[0] != "timestamp,operation,details" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Data Ingestion") || !strings.Contains(lines[1], "users.csv") {
		t.Errorf("row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "Drop Duplicates") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestParseCompression(t *testing.T) {
	if c, err := ParseCompression(""); err != nil || c != CompressionNone {
		t.Errorf("empty = %v, %v", c, err)
	}
	if _, err := ParseCompression("lz4"); err == nil {
		t.Error("expected error for unknown compression")
	}
}

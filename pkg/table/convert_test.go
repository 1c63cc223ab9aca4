package table

import (
	"errors"
	"testing"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		cell    Cell
		target  Kind
		want    Cell
		wantErr bool
	}{
		{name: "Null stays null", cell: Null(), target: KindInteger, want: Null()},
		{name: "String passthrough", cell: String("  hi  "), target: KindString, want: String("  hi  ")},
		{name: "Integer", cell: String("42"), target: KindInteger, want: String("42")},
		{name: "Integer from float form", cell: String("42.0"), target: KindInteger, want: String("42")},
		{name: "Integer with fraction fails", cell: String("42.5"), target: KindInteger, wantErr: true},
		{name: "Integer from text fails", cell: String("abc"), target: KindInteger, wantErr: true},
		{name: "Float", cell: String("3.140"), target: KindFloat, want: String("3.14")},
		{name: "Boolean yes", cell: String("YES"), target: KindBoolean, want: String("true")},
		{name: "Boolean zero", cell: String("0"), target: KindBoolean, want: String("false")},
		{name: "Boolean garbage fails", cell: String("maybe"), target: KindBoolean, wantErr: true},
		{name: "Timestamp canonical", cell: String("2024-01-02 10:30:00"), target: KindTimestamp, want: String("2024-01-02 10:30:00")},
		{name: "Timestamp date only", cell: String("2024-01-02"), target: KindTimestamp, want: String("2024-01-02 00:00:00")},
		{name: "Timestamp garbage fails", cell: String("not a date"), target: KindTimestamp, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.cell, "col", tt.target)
			if tt.wantErr {
				var convErr *ConversionError
				if !errors.As(err, &convErr) {
					t.Fatalf("Convert() error = %v, want ConversionError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Convert() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name  string
		cells []Cell
		want  Kind
	}{
		{name: "All integers", cells: []Cell{String("1"), String("2")}, want: KindInteger},
		{name: "Mixed int and float", cells: []Cell{String("1"), String("2.5")}, want: KindFloat},
		{name: "Booleans", cells: []Cell{String("true"), String("FALSE")}, want: KindBoolean},
		{name: "Timestamps", cells: []Cell{String("2024-01-02"), String("2024-03-04 05:06:07")}, want: KindTimestamp},
		{name: "Text", cells: []Cell{String("alpha"), String("42")}, want: KindString},
		{name: "Nulls ignored", cells: []Cell{Null(), String("7"), Null()}, want: KindInteger},
		{name: "All null", cells: []Cell{Null(), Null()}, want: KindUnknown},
		{name: "Empty column", cells: nil, want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferKind(tt.cells); got != tt.want {
				t.Errorf("InferKind() = %s, want %s", got, tt.want)
			}
		})
	}
}

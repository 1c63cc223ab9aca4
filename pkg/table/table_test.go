package table

import (
	"errors"
	"testing"
)

func TestNewValidatesInvariants(t *testing.T) {
	cols := []Column{{Name: "id", Kind: KindInteger}, {Name: "name", Kind: KindString}}

	t.Run("Valid table", func(t *testing.T) {
		tbl, err := New(cols, [][]Cell{{String("1"), String("a")}})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if tbl.NumRows() != 1 || tbl.NumCols() != 2 {
			t.Errorf("got %dx%d, want 1x2", tbl.NumRows(), tbl.NumCols())
		}
	})

	t.Run("Duplicate column name", func(t *testing.T) {
		_, err := New([]Column{{Name: "id"}, {Name: "id"}}, nil)
		var dup *DuplicateColumnError
		if !errors.As(err, &dup) {
			t.Fatalf("New() error = %v, want DuplicateColumnError", err)
		}
		if dup.Name != "id" {
			t.Errorf("dup.Name = %q, want %q", dup.Name, "id")
		}
	})

	t.Run("Empty column name", func(t *testing.T) {
		if _, err := New([]Column{{Name: ""}}, nil); err == nil {
			t.Error("New() accepted empty column name")
		}
	})

	t.Run("Ragged row", func(t *testing.T) {
		if _, err := New(cols, [][]Cell{{String("1")}}); err == nil {
			t.Error("New() accepted row with wrong cell count")
		}
	})
}

func TestCloneIsDeep(t *testing.T) {
	tbl, err := New(
		[]Column{{Name: "v", Kind: KindString}},
		[][]Cell{{String("original")}},
	)
	if err != nil {
		t.Fatal(err)
	}

	clone := tbl.Clone()
	clone.Rows[0][0] = String("changed")
	clone.Columns[0].Name = "renamed"

	if tbl.Rows[0][0].Value != "original" {
		t.Error("mutating clone row affected original")
	}
	if tbl.Columns[0].Name != "v" {
		t.Error("mutating clone column affected original")
	}
}

func TestColumnIndex(t *testing.T) {
	tbl := &Table{Columns: []Column{{Name: "a"}, {Name: "b"}}}
	if got := tbl.ColumnIndex("b"); got != 1 {
		t.Errorf("ColumnIndex(b) = %d, want 1", got)
	}
	if got := tbl.ColumnIndex("missing"); got != -1 {
		t.Errorf("ColumnIndex(missing) = %d, want -1", got)
	}
}

func TestMissingCount(t *testing.T) {
	tbl := &Table{
		Columns: []Column{{Name: "a"}, {Name: "b"}},
		Rows: [][]Cell{
			{String("1"), Null()},
			{Null(), Null()},
		},
	}
	if got := tbl.MissingCount(); got != 3 {
		t.Errorf("MissingCount() = %d, want 3", got)
	}
}

func TestKindIsNumeric(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindInteger, true},
		{KindFloat, true},
		{KindBoolean, false},
		{KindString, false},
		{KindTimestamp, false},
		{KindUnknown, false},
	}
	for _, tt := range tests {
		if got := tt.kind.IsNumeric(); got != tt.want {
			t.Errorf("%s.IsNumeric() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

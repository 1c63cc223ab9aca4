package workspace

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/DukeAche/Etl-studio/pkg/table"
)

func testTable(t *testing.T, marker string) *table.Table {
	t.Helper()
	tbl, err := table.New(
		[]table.Column{{Name: "v", Kind: table.KindString}},
		[][]table.Cell{{table.String(marker)}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestAddSetsFirstAsCurrent(t *testing.T) {
	w := New()

	if _, _, ok := w.Current(); ok {
		t.Fatal("empty workspace reported a current dataset")
	}

	if err := w.Add("first", testTable(t, "a")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := w.Add("second", testTable(t, "b")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	name, tbl, ok := w.Current()
	if !ok || name != "first" {
		t.Errorf("Current() = %q, ok=%v; want first, true", name, ok)
	}
	if tbl.Rows[0][0].Value != "a" {
		t.Errorf("current table = %q, want a", tbl.Rows[0][0].Value)
	}
}

func TestAddDuplicateLeavesStateUnchanged(t *testing.T) {
	w := New()
	if err := w.Add("data", testTable(t, "original")); err != nil {
		t.Fatal(err)
	}

	err := w.Add("data", testTable(t, "overwrite"))
	var dup *DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("Add() error = %v, want DuplicateNameError", err)
	}

	if w.Len() != 1 {
		t.Errorf("Len() = %d after failed Add, want 1", w.Len())
	}
	tbl, _ := w.Get("data")
	if tbl.Rows[0][0].Value != "original" {
		t.Error("failed Add overwrote the existing dataset")
	}
}

func TestReplaceKeepsOrderAndCurrent(t *testing.T) {
	w := New()
	w.Add("a", testTable(t, "1"))
	w.Add("b", testTable(t, "2"))
	w.SetCurrent("b")

	if err := w.Replace("a", testTable(t, "replaced")); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	names := w.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
	if name, _, _ := w.Current(); name != "b" {
		t.Errorf("current = %q after Replace, want b", name)
	}
	tbl, _ := w.Get("a")
	if tbl.Rows[0][0].Value != "replaced" {
		t.Error("Replace did not swap the value")
	}
}

func TestReplaceUnknownName(t *testing.T) {
	w := New()
	err := w.Replace("ghost", testTable(t, "x"))
	var unknown *UnknownNameError
	if !errors.As(err, &unknown) {
		t.Fatalf("Replace() error = %v, want UnknownNameError", err)
	}
}

func TestSetCurrentUnknownName(t *testing.T) {
	w := New()
	w.Add("a", testTable(t, "1"))

	var unknown *UnknownNameError
	if err := w.SetCurrent("ghost"); !errors.As(err, &unknown) {
		t.Fatalf("SetCurrent() error = %v, want UnknownNameError", err)
	}
	if name, _, _ := w.Current(); name != "a" {
		t.Errorf("current = %q after failed SetCurrent, want a", name)
	}
}

// Инвариант: после любой последовательности Add размер равен числу
// уникальных имен, current всегда валидный ключ.
func TestCurrentAlwaysValidKey(t *testing.T) {
	w := New()
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("ds_%d", i)
		if err := w.Add(name, testTable(t, name)); err != nil {
			t.Fatal(err)
		}
		if i%3 == 0 {
			if err := w.SetCurrent(name); err != nil {
				t.Fatal(err)
			}
		}

		current, _, ok := w.Current()
		if !ok {
			t.Fatal("non-empty workspace reported no current dataset")
		}
		if _, err := w.Get(current); err != nil {
			t.Fatalf("current %q is not a valid key: %v", current, err)
		}
	}
	if w.Len() != 10 {
		t.Errorf("Len() = %d, want 10", w.Len())
	}
}

func TestHistoryIsAppendOnly(t *testing.T) {
	w := New()
	w.RecordTransaction(OpDataIngestion, IngestionDetails("file.csv", 10, []string{"a"}))
	w.RecordTransaction(OpDropDuplicates, DropDuplicatesDetails(2, 8))

	history := w.History()
	if len(history) != 2 {
		t.Fatalf("History() len = %d, want 2", len(history))
	}
	if history[0].Kind != OpDataIngestion || history[1].Kind != OpDropDuplicates {
		t.Error("history order does not match append order")
	}

	// Копия не должна давать доступа к внутреннему журналу
	history[0].Kind = "tampered"
	if w.History()[0].Kind != OpDataIngestion {
		t.Error("mutating the returned slice changed the journal")
	}
}

func TestRecentHistoryNewestFirst(t *testing.T) {
	w := New()
	for i := 0; i < 5; i++ {
		w.RecordQuery(fmt.Sprintf("SELECT %d", i), i)
	}

	recent := w.RecentQueries(3)
	if len(recent) != 3 {
		t.Fatalf("RecentQueries(3) len = %d", len(recent))
	}
	if recent[0].Query != "SELECT 4" || recent[2].Query != "SELECT 2" {
		t.Errorf("RecentQueries order = %q..%q, want newest first", recent[0].Query, recent[2].Query)
	}

	if got := w.RecentHistory(10); len(got) != 0 {
		t.Errorf("RecentHistory(10) on empty journal = %d entries", len(got))
	}
}

func TestTruncateQuery(t *testing.T) {
	short := "SELECT 1"
	if got := TruncateQuery(short); got != short {
		t.Errorf("TruncateQuery(short) = %q", got)
	}

	long := ""
	for i := 0; i < 30; i++ {
		long += "SELECT * "
	}
	got := TruncateQuery(long)
	if len(got) != QueryTruncateLen+3 {
		t.Errorf("len(TruncateQuery(long)) = %d, want %d", len(got), QueryTruncateLen+3)
	}
}

func TestTruncateQueryRuneBoundary(t *testing.T) {
	// Кириллица по 2 байта: лимит в 100 байт приходится
	// на середину руны
	query := "SELECT * FROM продажи WHERE регион = 'северо-западный федеральный округ и прилегающие территории'"
	if len(query) <= QueryTruncateLen {
		t.Fatalf("query is %d bytes, need more than %d", len(query), QueryTruncateLen)
	}

	got := TruncateQuery(query)
	if !utf8.ValidString(got) {
		t.Errorf("TruncateQuery produced invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("TruncateQuery(long) = %q, want ... suffix", got)
	}
	if len(got) > QueryTruncateLen+3 {
		t.Errorf("len = %d, want at most %d", len(got), QueryTruncateLen+3)
	}
}

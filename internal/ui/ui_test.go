package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/value"
)

func TestTableAlignsColumns(t *testing.T) {
	tbl := NewTable(3)
	tbl.AddRow("make", "Canon", "3")
	tbl.AddRow("iso", "100")
	tbl.AddRow("a", "b", "c", "dropped")

	want := "make  Canon  3\n" +
		"iso   100    \n" +
		"a     b      c\n"
	if got := tbl.String(); got != want {
		t.Fatalf("unexpected table:\n%q\nwant\n%q", got, want)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	if NewTable(2).String() != "" {
		t.Fatal("expected empty table to render as empty string")
	}
}

func TestResultsTable(t *testing.T) {
	a := entity.NewFile("photos/a.jpg", []entity.Attribute{
		{Name: "iso", Value: value.Int(200)},
		{Name: "model", Value: value.String("X100")},
	})
	b := entity.NewFile("photos/b.jpg", []entity.Attribute{
		{Name: "iso", Value: value.Int(800)},
	})
	dir := entity.NewDirectory("photos/trip")

	entities := []entity.Entity{a, b, dir}
	cols := Columns(entities, entity.AttrFileName)
	if strings.Join(cols, ",") != "iso,model" {
		t.Fatalf("unexpected columns %v", cols)
	}

	tbl := NewResultsTable(NewDisplayContextWithWidth(80), cols)
	for _, e := range entities {
		tbl.Add(e)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}

	out := tbl.Render()
	for _, want := range []string{"path", "iso", "model", "photos/a.jpg", "X100", "800", "photos/trip/", "null"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if NewResultsTable(nil, nil).Render() != "" {
		t.Fatal("expected empty results to render as empty string")
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"photos/2020/summer/a.jpg", 12, "photos/20..."},
		{"abcdef", 3, "abc"},
		{"Café Zürich", 7, "Café..."},
	}
	for _, tt := range tests {
		if got := TruncateWithEllipsis(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestQueryProgressCounts(t *testing.T) {
	var buf bytes.Buffer
	p := &QueryProgress{spinner: &Spinner{out: &buf, frames: defaultFrames}}

	p.BeginExecution()
	p.Folder("photos")
	p.BeginLoading("photos/a.jpg")
	p.EndLoading("photos/a.jpg")
	p.Folder("photos/trip")
	p.BeginLoading("photos/trip/b.jpg")
	p.EndLoading("photos/trip/b.jpg")
	p.EndExecution()

	folders, loaded := p.Counts()
	if folders != 2 || loaded != 2 {
		t.Fatalf("expected 2 folders and 2 loads, got %d and %d", folders, loaded)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output without a terminal, got %q", buf.String())
	}
}

func TestSpinnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	s := &Spinner{out: &buf, tty: true, message: "Indexing", frames: defaultFrames}
	s.Start()
	s.Start()
	s.SetDetail("photos")
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	s.Stop()

	if !strings.Contains(buf.String(), "Indexing") {
		t.Fatalf("expected spinner output, got %q", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\r\033[K") {
		t.Fatalf("expected spinner to clear its line, got %q", buf.String())
	}
}

func TestCount(t *testing.T) {
	if got := Count(1, "file"); got != "(1 file)" {
		t.Errorf("unexpected %q", got)
	}
	if got := Count(3, "file"); got != "(3 files)" {
		t.Errorf("unexpected %q", got)
	}
}

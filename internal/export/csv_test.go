package export

import (
	"strings"
	"testing"
	"time"
)

type item struct {
	ID   string
	Note string
}

var cols = []Column[item]{
	{Header: "ID", Value: func(i item) string { return i.ID }},
	{Header: "Note", Value: func(i item) string { return Or(i.Note) }},
}

func TestEncode_EmptyViewIsHeaderOnly(t *testing.T) {
	got := EncodeString(cols, nil)
	if got != `"ID","Note"` {
		t.Fatalf("got %q", got)
	}
	if strings.Count(got, "\n") != 0 {
		t.Fatalf("expected single line")
	}
}

func TestEncode_QuotesEveryFieldAndDoublesQuotes(t *testing.T) {
	got := EncodeString(cols, []item{
		{ID: "1", Note: `say "hi", ok`},
		{ID: "2"},
	})
	want := "\"ID\",\"Note\"\n\"1\",\"say \"\"hi\"\", ok\"\n\"2\",\"N/A\""
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestEncode_NewlineInsideFieldStaysQuoted(t *testing.T) {
	got := EncodeString(cols, []item{{ID: "1", Note: "line1\nline2"}})
	if !strings.HasSuffix(got, "\"line1\nline2\"") {
		t.Fatalf("got %q", got)
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	if got := Filename("orders", now); got != "orders-2024-03-09.csv" {
		t.Fatalf("got %q", got)
	}
	tokyo := time.FixedZone("JST", 9*3600)
	if got := Filename("orders", now.In(tokyo)); got != "orders-2024-03-10.csv" {
		t.Fatalf("got %q", got)
	}
}

func TestOr(t *testing.T) {
	if Or("  ") != NotAvailable || Or("x") != "x" {
		t.Fatalf("Or mismatch")
	}
}

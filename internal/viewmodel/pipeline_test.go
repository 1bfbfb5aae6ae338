package viewmodel

import (
	"slices"
	"testing"
	"time"
)

type row struct {
	ID     string
	Status string
	Buyer  string
	Title  string
	Coins  int64
	At     time.Time
}

var rowFields = Fields[row]{
	Status: func(r row) string { return r.Status },
	Search: []func(row) string{
		func(r row) string { return r.Buyer },
		func(r row) string { return r.Title },
	},
	Sorts: map[string]Comparator[row]{
		SortDate:  ByTimeDesc(func(r row) time.Time { return r.At }),
		SortValue: ByNumberDesc(func(r row) int64 { return r.Coins }),
		"buyer":   ByTextAsc(func(r row) string { return r.Buyer }),
	},
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func sample() []row {
	return []row{
		{ID: "1", Status: "completed", Buyer: "zoe", Title: "Morning Show", Coins: 50, At: day(3)},
		{ID: "2", Status: "pending", Buyer: "Émile", Title: "Cooking Live", Coins: 300, At: day(1)},
		{ID: "3", Status: "cancelled", Buyer: "adam", Title: "Night Market", Coins: 120, At: day(5)},
		{ID: "4", Status: "pending", Buyer: "Bea", Title: "Morning Yoga", Coins: 300, At: day(5)},
	}
}

func ids(rs []row) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestFilter_Status(t *testing.T) {
	in := sample()
	for _, st := range []string{"pending", "completed", "cancelled"} {
		got := rowFields.Filter(in, Query{Status: st})
		for _, r := range got {
			if r.Status != st {
				t.Fatalf("filter %q returned status %q", st, r.Status)
			}
		}
	}
	if got := rowFields.Filter(in, Query{Status: StatusAll}); !slices.Equal(ids(got), ids(in)) {
		t.Fatalf("all should be identity, got %v", ids(got))
	}
	if got := rowFields.Filter(in, Query{}); len(got) != len(in) {
		t.Fatalf("empty status should be identity, got %v", ids(got))
	}
}

func TestFilter_SearchCaseInsensitiveSubstringAndMonotonic(t *testing.T) {
	in := sample()
	all := rowFields.Filter(in, Query{Status: "all", Search: ""})

	got := rowFields.Filter(in, Query{Status: "all", Search: "MORN"})
	if !slices.Equal(ids(got), []string{"1", "4"}) {
		t.Fatalf("search MORN = %v", ids(got))
	}
	for _, r := range got {
		if !slices.ContainsFunc(all, func(x row) bool { return x.ID == r.ID }) {
			t.Fatalf("search result %s not in unfiltered set", r.ID)
		}
	}
	if got := rowFields.Filter(in, Query{Search: "  ada "}); !slices.Equal(ids(got), []string{"3"}) {
		t.Fatalf("trimmed search = %v", ids(got))
	}
	if got := rowFields.Filter(in, Query{Status: "pending", Search: "yoga"}); !slices.Equal(ids(got), []string{"4"}) {
		t.Fatalf("status+search = %v", ids(got))
	}
}

func TestSort_DateDescendingIdempotent(t *testing.T) {
	in := sample()
	once := rowFields.Sort(in, SortDate)
	twice := rowFields.Sort(once, SortDate)
	if !slices.Equal(ids(once), ids(twice)) {
		t.Fatalf("date sort not idempotent: %v vs %v", ids(once), ids(twice))
	}
	for i := 1; i < len(once); i++ {
		if once[i].At.After(once[i-1].At) {
			t.Fatalf("timestamps increase at %d: %v", i, ids(once))
		}
	}
	// 3 与 4 同一天，稳定排序保持输入顺序。
	if !slices.Equal(ids(once), []string{"3", "4", "1", "2"}) {
		t.Fatalf("date sort = %v", ids(once))
	}
}

func TestSort_ValueDescendingStable(t *testing.T) {
	got := rowFields.Sort(sample(), SortValue)
	if !slices.Equal(ids(got), []string{"2", "4", "3", "1"}) {
		t.Fatalf("value sort = %v", ids(got))
	}
}

func TestSort_AlphaLocaleAware(t *testing.T) {
	got := rowFields.Sort(sample(), "buyer")
	// 语言感知：大小写与重音不影响字母序（adam < Bea < Émile < zoe）。
	if !slices.Equal(ids(got), []string{"3", "4", "2", "1"}) {
		t.Fatalf("buyer sort = %v", ids(got))
	}
}

func TestSort_UnknownKeyKeepsOrderAndInputUntouched(t *testing.T) {
	in := sample()
	orig := ids(in)
	got := rowFields.Sort(in, "nope")
	if !slices.Equal(ids(got), orig) {
		t.Fatalf("unknown key reordered: %v", ids(got))
	}
	_ = rowFields.Apply(in, Query{Sort: SortValue})
	if !slices.Equal(ids(in), orig) {
		t.Fatalf("input mutated: %v", ids(in))
	}
}

func TestApply_EmptyInput(t *testing.T) {
	got := rowFields.Apply(nil, Query{Status: "pending", Sort: SortDate})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSortKeys(t *testing.T) {
	if got := rowFields.SortKeys(); !slices.Equal(got, []string{"buyer", "date", "value"}) {
		t.Fatalf("SortKeys = %v", got)
	}
}

package viewmodel

import (
	"cmp"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ByTimeDesc：时间新的在前。
func ByTimeDesc[T any](get func(T) time.Time) Comparator[T] {
	return func(a, b T) int {
		return get(b).Compare(get(a))
	}
}

func ByNumberDesc[T any, N cmp.Ordered](get func(T) N) Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(get(b), get(a))
	}
}

// ByTextAsc 按语言习惯升序比较（忽略大小写差异的主次序由 collator 决定）。
func ByTextAsc[T any](get func(T) string) Comparator[T] {
	return func(a, b T) int {
		return compareText(get(a), get(b))
	}
}

// collate.Collator 不是并发安全的。
var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English, collate.IgnoreCase)
)

func compareText(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

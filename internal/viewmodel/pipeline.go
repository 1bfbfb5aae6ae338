// Package viewmodel 从已加载的记录派生展示列表：状态过滤 → 关键字搜索 → 稳定排序。
// 分页由服务端完成，这里只维护页码（见 Pager）。所有函数均不修改输入。
package viewmodel

import (
	"slices"
	"strings"
)

const StatusAll = "all"

const (
	SortDate  = "date"
	SortValue = "value"
)

type Query struct {
	Status string
	Search string
	Sort   string
}

// Comparator 返回负数表示 a 排在 b 前面。
type Comparator[T any] func(a, b T) int

// Fields 描述一种记录类型在流水线中的字段访问方式。
type Fields[T any] struct {
	Status func(T) string
	Search []func(T) string
	Sorts  map[string]Comparator[T]
}

func (f Fields[T]) Filter(items []T, q Query) []T {
	status := strings.TrimSpace(q.Status)
	term := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]T, 0, len(items))
	for _, it := range items {
		if status != "" && status != StatusAll && f.Status != nil && f.Status(it) != status {
			continue
		}
		if term != "" && !f.matches(it, term) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (f Fields[T]) matches(it T, term string) bool {
	for _, get := range f.Search {
		if strings.Contains(strings.ToLower(get(it)), term) {
			return true
		}
	}
	return false
}

// Sort 返回排序后的副本；未知排序键保持输入顺序。
func (f Fields[T]) Sort(items []T, key string) []T {
	out := slices.Clone(items)
	if out == nil {
		out = []T{}
	}
	cmp, ok := f.Sorts[key]
	if !ok || cmp == nil {
		return out
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func (f Fields[T]) Apply(items []T, q Query) []T {
	return f.Sort(f.Filter(items, q), q.Sort)
}

// SortKeys 返回支持的排序键，顺序固定便于渲染下拉框。
func (f Fields[T]) SortKeys() []string {
	keys := make([]string, 0, len(f.Sorts))
	for k := range f.Sorts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

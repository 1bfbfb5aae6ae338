package viewmodel

// Pager 维护服务端分页的页码。
//
// 后端明确 hasNextPage=false，或当前页为空时拒绝 Next；Prev 最小到第 1 页。
type Pager struct {
	Page  int
	Limit int

	known   bool
	hasNext bool
}

func NewPager(limit int) Pager {
	if limit <= 0 {
		limit = 20
	}
	return Pager{Page: 1, Limit: limit}
}

// Observe 记录一次拉取结果。hasNextPage 为 nil 时以“本页非空”推断。
func (p *Pager) Observe(count int, hasNextPage *bool) {
	p.known = true
	switch {
	case count == 0:
		p.hasNext = false
	case hasNextPage != nil:
		p.hasNext = *hasNextPage
	default:
		p.hasNext = true
	}
}

// Reset 在参数（例如状态过滤）变化时回到第 1 页。
func (p *Pager) Reset() {
	p.Page = 1
	p.known = false
	p.hasNext = false
}

func (p Pager) CanPrev() bool { return p.Page > 1 }

// CanNext 在尚未观察到任何结果前返回 false。
func (p Pager) CanNext() bool { return p.known && p.hasNext }

func (p *Pager) Next() bool {
	if !p.CanNext() {
		return false
	}
	p.Page++
	p.known = false
	return true
}

func (p *Pager) Prev() bool {
	if p.Page <= 1 {
		p.Page = 1
		return false
	}
	p.Page--
	p.known = false
	return true
}

// Goto 跳到指定页。尚未观察到当前页时接受任意页码（书签、工作区被回收后的首次访问）；
// 只有后端已报告当前页是末页时才拒绝前进，并保持原页码。
func (p *Pager) Goto(page int) bool {
	if page < 1 {
		page = 1
	}
	if page == p.Page {
		return true
	}
	if page > p.Page && p.known && !p.hasNext {
		return false
	}
	p.Page = page
	p.known = false
	p.hasNext = false
	return true
}

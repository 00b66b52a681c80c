// Package pager tracks a visible window over a result list.
package pager

import "math"

// Cursor is a scroll offset plus the highlighted row inside the visible page.
// Offset+Pos is the absolute index into the result list.
//
// Every method takes the page size and the current number of results and
// returns true when the offset changed, i.e. the page has to be redrawn
// rather than just the highlight. With no results all methods are no-ops.
type Cursor struct {
	Offset int
	Pos    int
}

// Abs returns the absolute index of the highlighted row.
func (c Cursor) Abs() int {
	return c.Offset + c.Pos
}

// Reset moves back to the first row.
func (c *Cursor) Reset() {
	c.Offset = 0
	c.Pos = 0
}

func maxOffset(pageSize, total int) int {
	if total > pageSize {
		return total - pageSize
	}
	return 0
}

// Home moves to the first row.
func (c *Cursor) Home(pageSize, total int) bool {
	if total <= 0 {
		return false
	}
	return c.MoveBy(-c.Abs(), pageSize, total)
}

// End moves to the last row.
func (c *Cursor) End(pageSize, total int) bool {
	if total <= 0 {
		return false
	}
	return c.MoveBy(total-1-c.Abs(), pageSize, total)
}

// MoveBy moves the highlight by delta rows, scrolling when it leaves the page.
func (c *Cursor) MoveBy(delta, pageSize, total int) bool {
	if total <= 0 || pageSize <= 0 {
		return false
	}
	old := c.Offset
	top := maxOffset(pageSize, total)

	c.Pos += delta
	if c.Pos < 0 {
		c.Offset += c.Pos
		if c.Offset < 0 {
			c.Offset = 0
		}
		c.Pos = 0
	} else if c.Pos >= pageSize {
		c.Offset += c.Pos - pageSize + 1
		if c.Offset > top {
			c.Offset = top
		}
		c.Pos = pageSize - 1
	}
	c.clamp(pageSize, total)
	return c.Offset != old
}

// SetAbsolute scrolls to a proportional position, as when dragging a
// scrollbar: fraction 0 shows the first page, 1 the last.
func (c *Cursor) SetAbsolute(fraction float64, pageSize, total int) bool {
	if total <= 0 || pageSize <= 0 {
		return false
	}
	old := c.Offset
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	c.Offset = int(math.Round(fraction * float64(total-pageSize)))
	c.clamp(pageSize, total)
	return c.Offset != old
}

// Pick highlights the row at visible position pos, as when clicking it.
func (c *Cursor) Pick(pos, pageSize, total int) bool {
	if total <= 0 || pageSize <= 0 {
		return false
	}
	if pos < 0 || pos >= pageSize || c.Offset+pos >= total {
		return false
	}
	c.Pos = pos
	return false
}

// Clamp restores the invariants after the page size or total changed,
// keeping the highlighted row visible.
func (c *Cursor) Clamp(pageSize, total int) bool {
	old := c.Offset
	if total <= 0 || pageSize <= 0 {
		c.Reset()
		return old != 0
	}
	abs := c.Abs()
	if abs >= total {
		abs = total - 1
	}
	if abs < 0 {
		abs = 0
	}
	if top := maxOffset(pageSize, total); c.Offset > top {
		c.Offset = top
	}
	if abs < c.Offset {
		c.Offset = abs
	}
	if abs >= c.Offset+pageSize {
		c.Offset = abs - pageSize + 1
	}
	c.Pos = abs - c.Offset
	return c.Offset != old
}

func (c *Cursor) clamp(pageSize, total int) {
	top := maxOffset(pageSize, total)
	if c.Offset > top {
		c.Offset = top
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	last := total - c.Offset - 1
	if last < 0 {
		last = 0
	}
	if last > pageSize-1 {
		last = pageSize - 1
	}
	if c.Pos > last {
		c.Pos = last
	}
	if c.Pos < 0 {
		c.Pos = 0
	}
}

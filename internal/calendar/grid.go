package calendar

import (
	"time"

	"github.com/pkordes/weekend-poll/internal/domain"
)

// GridCells is the size of a month view: six rows of seven days.
const GridCells = 42

// Cell is one square of a month view. Date is the real date of the square,
// including the leading and trailing days that belong to the neighbouring
// months, so a click never has to guess which month it landed in.
type Cell struct {
	Date    time.Time
	InMonth bool
}

// MonthGrid returns the Sunday-first 6×7 grid for month in year. Leading cells
// come from the previous month and trailing cells from the next one.
func MonthGrid(year int, month time.Month) []Cell {
	first := Date(year, month, 1)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	cells := make([]Cell, GridCells)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		cells[i] = Cell{Date: d, InMonth: d.Month() == month}
	}
	return cells
}

// Picker is the host-side weekend selection state. Today decides which days
// are in the past; Selection is the ordered list that becomes the poll's
// weekends, so its order is the weekend index order.
type Picker struct {
	Today     time.Time
	Selection []domain.Weekend
}

// NewPicker returns an empty Picker anchored on the civil date of now.
func NewPicker(now time.Time) *Picker {
	return &Picker{Today: Today(now)}
}

// Selectable reports whether a click on d would change the selection.
func (p *Picker) Selectable(d time.Time) bool {
	return IsWeekendDay(d) && !Today(d).Before(p.Today)
}

// Click toggles the weekend containing d. Weekdays and past days are ignored
// and Click reports false for them.
func (p *Picker) Click(d time.Time) bool {
	if !p.Selectable(d) {
		return false
	}
	pair, err := PairFor(d)
	if err != nil {
		return false
	}
	p.Selection = Toggle(p.Selection, pair)
	return true
}

// ClickCell toggles the weekend for a grid cell. The cell's own date is used,
// never the displayed month.
func (p *Picker) ClickCell(c Cell) bool {
	return p.Click(c.Date)
}

// Weekends returns a copy of the current selection.
func (p *Picker) Weekends() []domain.Weekend {
	return append([]domain.Weekend(nil), p.Selection...)
}

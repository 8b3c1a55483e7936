package dataset

import (
	"time"

	"github.com/V4T54L/rootscope/internal/domain"
)

// MonthLabelLayout formats month index entries for display.
const MonthLabelLayout = "2006-01"

// MonthIndex is the ordered list of month starts a cutoff can be chosen from.
type MonthIndex struct {
	months   []time.Time
	position map[time.Time]int
}

// MonthMark labels one slider position.
type MonthMark struct {
	Position int    `json:"position"`
	Label    string `json:"label"`
}

// BuildMonthIndex lists every month from the later of the earliest record's month and floor's
// month through today's month, inclusive. With no records it starts at floor.
func BuildMonthIndex(records []domain.SiteRecord, floor, today time.Time) *MonthIndex {
	start := monthStart(floor)
	if len(records) > 0 {
		earliest := records[0].CreatedAt
		for _, r := range records[1:] {
			if r.CreatedAt.Before(earliest) {
				earliest = r.CreatedAt
			}
		}
		if m := monthStart(earliest); m.After(start) {
			start = m
		}
	}
	end := monthStart(today)

	idx := &MonthIndex{position: make(map[time.Time]int)}
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		idx.position[cur] = len(idx.months)
		idx.months = append(idx.months, cur)
	}
	return idx
}

func (m *MonthIndex) Len() int {
	return len(m.months)
}

// At returns the month at position pos.
func (m *MonthIndex) At(pos int) (time.Time, bool) {
	if pos < 0 || pos >= len(m.months) {
		return time.Time{}, false
	}
	return m.months[pos], true
}

// PositionOf returns the position of the month containing t.
func (m *MonthIndex) PositionOf(t time.Time) (int, bool) {
	pos, ok := m.position[monthStart(t)]
	return pos, ok
}

// Last returns the final position, or -1 for an empty index.
func (m *MonthIndex) Last() int {
	return len(m.months) - 1
}

// Months returns a copy of the index.
func (m *MonthIndex) Months() []time.Time {
	out := make([]time.Time, len(m.months))
	copy(out, m.months)
	return out
}

// Marks labels every step-th position starting at 0.
func (m *MonthIndex) Marks(step int) []MonthMark {
	if step <= 0 {
		step = 1
	}
	marks := make([]MonthMark, 0, len(m.months)/step+1)
	for i := 0; i < len(m.months); i += step {
		marks = append(marks, MonthMark{Position: i, Label: m.months[i].Format(MonthLabelLayout)})
	}
	return marks
}

// CutoffDay is the inclusive day bound used for a cutoff month: day 28 of that month.
// Records created on the 29th or later fall into the next month's cutoff.
func CutoffDay(month time.Time) time.Time {
	y, mo, _ := month.UTC().Date()
	return time.Date(y, mo, 28, 0, 0, 0, 0, time.UTC)
}

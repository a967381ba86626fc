// Package datepicker keeps the fallback day/month/year selectors of the
// booking form in step with the calendar widget.
package datepicker

import (
	"errors"
	"strconv"
	"time"
)

// DaysAhead is how far past today the calendar allows picking.
const DaysAhead = 27

// ErrOutOfRange is returned for dates the calendar would not offer.
var ErrOutOfRange = errors.New("date outside booking window")

// Option is one entry of a select element.
type Option struct {
	Value    string
	Text     string
	Selected bool
}

// Selectors are the three fallback select elements.
type Selectors struct {
	Day   []Option
	Month []Option
	Year  []Option
}

// Window returns the first and last selectable dates for today.
func Window(today time.Time) (time.Time, time.Time) {
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	return start, start.AddDate(0, 0, DaysAhead)
}

// Select marks the options matching picked. Days and years match on option
// text, months on option value (1-12). A selector without a matching option
// keeps its current selection.
func Select(sel *Selectors, picked, today time.Time) error {
	first, last := Window(today)
	y, m, d := picked.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, first.Location())
	if day.Before(first) || day.After(last) {
		return ErrOutOfRange
	}

	selectMatching(sel.Day, func(o Option) bool { return o.Text == strconv.Itoa(d) })
	selectMatching(sel.Month, func(o Option) bool { return o.Value == strconv.Itoa(int(m)) })
	selectMatching(sel.Year, func(o Option) bool { return o.Text == strconv.Itoa(y) })
	return nil
}

func selectMatching(opts []Option, match func(Option) bool) {
	idx := -1
	for i, o := range opts {
		if match(o) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	for i := range opts {
		opts[i].Selected = i == idx
	}
}

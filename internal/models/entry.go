// Package models defines the diary entry model and the date helpers the
// store and the view-model share.
package models

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// DraftID marks an entry that has not been persisted yet.
const DraftID int64 = -1

const (
	PlaceholderTitle   = "no title"
	PlaceholderContent = "entry is empty"
)

// Entry is a single dated diary entry.
type Entry struct {
	// ID is assigned by the store on insert and never changes afterwards.
	ID int64

	Title   string
	Content string

	// Date is an ISO-8601 calendar date (YYYY-MM-DD). Lexicographic order of
	// this string is chronological order; the store sorts on it directly.
	Date string
}

// Order selects the direction of a date-ordered listing.
type Order int

const (
	Descending Order = iota
	Ascending
)

func (o Order) String() string {
	if o == Ascending {
		return "asc"
	}
	return "desc"
}

// NewDraft returns an empty, unsaved entry dated on now's calendar day.
func NewDraft(now time.Time) Entry {
	return Entry{ID: DraftID, Date: FormatDate(now)}
}

// IsDraft reports whether e has no store-assigned id.
func (e Entry) IsDraft() bool {
	return e.ID <= 0
}

// WithPlaceholders returns a copy of e where a blank title or content is
// replaced by the matching placeholder.
func (e Entry) WithPlaceholders() Entry {
	if strings.TrimSpace(e.Title) == "" {
		e.Title = PlaceholderTitle
	}
	if strings.TrimSpace(e.Content) == "" {
		e.Content = PlaceholderContent
	}
	return e
}

// FormatDate renders t's calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	t, err := time.Parse(time.DateOnly, s)
	return err == nil && t.Format(time.DateOnly) == s
}

// SortByDate orders entries by Date in the given direction. Entries sharing
// a date stay in ascending ID order, i.e. insertion order, in both directions.
func SortByDate(entries []Entry, order Order) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		c := strings.Compare(a.Date, b.Date)
		if order == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

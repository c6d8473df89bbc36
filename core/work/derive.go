package work

import (
	"sort"
	"strings"
)

type SortOrder string

const (
	SortNewest SortOrder = "Newest"
	SortOldest SortOrder = "Oldest"
)

// Filter describes the view of the item list a student or teacher asked for.
// Empty fields, and the "All" sentinel for Subject and Type, mean no constraint.
type Filter struct {
	Subject string    `query:"subject" json:"subject,omitempty"`
	Type    string    `query:"type" json:"type,omitempty"`
	Date    string    `query:"date" json:"date,omitempty"`   // YYYY-MM-DD
	Month   string    `query:"month" json:"month,omitempty"` // MM
	Year    string    `query:"year" json:"year,omitempty"`   // YYYY
	Search  string    `query:"search" json:"search,omitempty"`
	Sort    SortOrder `query:"sort" json:"sort,omitempty"`
}

func (f *Filter) Clean() {
	f.Subject = strings.TrimSpace(f.Subject)
	f.Type = strings.TrimSpace(f.Type)
	f.Date = strings.TrimSpace(f.Date)
	f.Month = strings.TrimSpace(f.Month)
	f.Year = strings.TrimSpace(f.Year)
	if f.Sort != SortOldest {
		f.Sort = SortNewest
	}
}

func constrained(v string) bool {
	return v != "" && v != All
}

// Match reports whether it satisfies every predicate of f.
func (f Filter) Match(it Item) bool {
	if constrained(f.Subject) && string(it.Subject) != f.Subject {
		return false
	}
	if constrained(f.Type) && string(it.Type) != f.Type {
		return false
	}
	if f.Date != "" && it.Date != f.Date {
		return false
	}
	if f.Month != "" && (len(it.Date) < 7 || it.Date[5:7] != f.Month) {
		return false
	}
	if f.Year != "" && (len(it.Date) < 4 || it.Date[:4] != f.Year) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" && !matchSearch(it, q) {
		return false
	}
	return true
}

// matchSearch does a lower-cased substring match on subject, type, description and attachment names.
func matchSearch(it Item, q string) bool {
	fields := make([]string, 0, 3+len(it.Files))
	fields = append(fields, string(it.Subject), string(it.Type), it.Description)
	for _, f := range it.Files {
		fields = append(fields, f.Name)
	}
	for _, fld := range fields {
		if strings.Contains(strings.ToLower(fld), q) {
			return true
		}
	}
	return false
}

// FilterItems returns the items matching f, in their original order.
func FilterItems(items []Item, f Filter) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

// SortItems returns a copy of items stably sorted by creation time in the given order.
// Anything but SortOldest sorts newest first.
func SortItems(items []Item, order SortOrder) []Item {
	out := append(make([]Item, 0, len(items)), items...)
	if order == SortOldest {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	}
	return out
}

// Apply filters then sorts items according to f.
func Apply(items []Item, f Filter) []Item {
	return SortItems(FilterItems(items, f), f.Sort)
}

// MonthGroup is a bucket of items sharing the same "YYYY-MM" date prefix.
type MonthGroup struct {
	Month string `json:"month"`
	Items []Item `json:"items"`
}

// GroupByMonth buckets items by month. Buckets are ordered in the same direction as order;
// items keep their relative order within a bucket.
func GroupByMonth(items []Item, order SortOrder) []MonthGroup {
	idx := make(map[string]int)
	groups := make([]MonthGroup, 0)
	for _, it := range items {
		m := it.Month()
		i, ok := idx[m]
		if !ok {
			i = len(groups)
			idx[m] = i
			groups = append(groups, MonthGroup{Month: m})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if order == SortOldest {
			return groups[i].Month < groups[j].Month
		}
		return groups[i].Month > groups[j].Month
	})
	return groups
}

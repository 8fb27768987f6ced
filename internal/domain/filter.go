package domain

import "strings"

// FilterAll disables status/category filtering
const FilterAll Filter = "All"

// Filter is either All, a status name, or a category tag
type Filter string

// Status returns the status named by the filter, if any
func (f Filter) Status() (TaskStatus, bool) {
	for _, s := range AllStatuses {
		if string(f) == string(s) {
			return s, true
		}
	}
	return "", false
}

// Matches applies the filter to a single task
func (f Filter) Matches(t Task) bool {
	if f == FilterAll || f == "" {
		return true
	}
	if status, ok := f.Status(); ok {
		return t.Status == status
	}
	c := CategoryOf(t.FileName)
	return c != "" && c == Category(f)
}

// MatchesSearch reports whether the case-folded file name or url contains text
func MatchesSearch(t Task, text string) bool {
	if text == "" {
		return true
	}
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(t.FileName), needle) ||
		strings.Contains(strings.ToLower(t.URL), needle)
}

// ValidateFilter checks if a filter names All, a status or a category
func ValidateFilter(f Filter) bool {
	if f == FilterAll {
		return true
	}
	if _, ok := f.Status(); ok {
		return true
	}
	return ValidateCategory(Category(f))
}

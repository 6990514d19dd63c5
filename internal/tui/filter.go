package tui

import (
	"regexp"
)

// FilterMsg represents messages that the filter component handles
type FilterMsg interface {
	isFilterMsg()
}

// Filter message implementations
type StartFilterMsg struct{}

func (StartFilterMsg) isFilterMsg() {}

type UpdateFilterInputMsg struct {
	Input string
}

func (UpdateFilterInputMsg) isFilterMsg() {}

type ApplyFilterMsg struct{}

func (ApplyFilterMsg) isFilterMsg() {}

type CancelFilterMsg struct{}

func (CancelFilterMsg) isFilterMsg() {}

type ClearFilterMsg struct{}

func (ClearFilterMsg) isFilterMsg() {}

// FilterModel narrows the list pane to records whose name or prompt
// matches a case-insensitive pattern.
type FilterModel struct {
	Active  bool           // true while the pattern is being typed
	Input   string         // pattern being typed
	Pattern string         // applied pattern
	Error   string         // compile error for Input
	re      *regexp.Regexp // compiled Pattern
}

// NewFilterModel creates an inactive filter.
func NewFilterModel() FilterModel {
	return FilterModel{}
}

// Update handles filter messages
func (f *FilterModel) Update(msg FilterMsg) error {
	switch m := msg.(type) {
	case StartFilterMsg:
		f.Active = true
		f.Input = f.Pattern
		f.Error = ""
	case UpdateFilterInputMsg:
		f.Input = m.Input
	case ApplyFilterMsg:
		if f.Input == "" {
			f.clear()
			return nil
		}
		re, err := regexp.Compile("(?i)" + f.Input)
		if err != nil {
			// stay active so the pattern can be corrected
			f.Error = err.Error()
			return nil
		}
		f.Pattern = f.Input
		f.re = re
		f.Error = ""
		f.Active = false
	case CancelFilterMsg:
		f.Active = false
		f.Input = ""
		f.Error = ""
	case ClearFilterMsg:
		f.clear()
	}
	return nil
}

func (f *FilterModel) clear() {
	f.Active = false
	f.Input = ""
	f.Pattern = ""
	f.Error = ""
	f.re = nil
}

// IsActive reports whether a pattern is being typed.
func (f *FilterModel) IsActive() bool {
	return f.Active
}

// IsApplied reports whether a pattern is narrowing the list.
func (f *FilterModel) IsApplied() bool {
	return f.re != nil
}

// Apply returns the items that match the applied pattern.
func (f *FilterModel) Apply(items []*Item) []*Item {
	if f.re == nil {
		return items
	}
	var out []*Item
	for _, it := range items {
		if it.Matches(f.re) {
			out = append(out, it)
		}
	}
	return out
}

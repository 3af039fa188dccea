package mapview

import (
	"slices"

	"github.com/claude/mapty/internal/view"
)

// ListState is the JSON form of a List.
type ListState struct {
	Entries     []view.Entry `json:"entries"`
	Editing     string       `json:"editing,omitempty"`
	BulkActions bool         `json:"bulk_actions"`
	Warning     string       `json:"warning,omitempty"`
}

// List implements view.ListView as plain state.
type List struct {
	entries []view.Entry
	editing string
	bulk    bool
	warning string
}

var _ view.ListView = (*List)(nil)

// NewList returns an empty list.
func NewList() *List { return &List{} }

func (l *List) Append(e view.Entry) { l.entries = append(l.entries, e) }

// Replace swaps the entry with the same id in place.
func (l *List) Replace(e view.Entry) {
	if i := l.index(e.ID); i >= 0 {
		l.entries[i] = e
	}
}

func (l *List) Remove(id string) {
	if i := l.index(id); i >= 0 {
		l.entries = slices.Delete(l.entries, i, i+1)
	}
}

func (l *List) Reset(entries []view.Entry) {
	l.entries = slices.Clone(entries)
}

func (l *List) SetBulkActions(visible bool) { l.bulk = visible }

func (l *List) SetEditing(id string, open bool) {
	switch {
	case open:
		l.editing = id
	case l.editing == id:
		l.editing = ""
	}
}

func (l *List) Warn(msg string) { l.warning = msg }

// ClearWarning drops a shown warning once the user has acknowledged it.
func (l *List) ClearWarning() { l.warning = "" }

// State returns a copy of the list for serialization.
func (l *List) State() ListState {
	entries := slices.Clone(l.entries)
	if entries == nil {
		entries = []view.Entry{}
	}
	return ListState{Entries: entries, Editing: l.editing, BulkActions: l.bulk, Warning: l.warning}
}

func (l *List) index(id string) int {
	return slices.IndexFunc(l.entries, func(e view.Entry) bool { return e.ID == id })
}

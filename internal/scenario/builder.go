// Package scenario holds the what-if change list edited in the detail view.
package scenario

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/copiloto/internal/analysis"
)

// NewCategory is the category option that asks the user for a new name.
const NewCategory = "_nuevo_"

// ValueType selects how the numeric input is interpreted.
type ValueType int

const (
	Amount ValueType = iota
	Percentage
)

func (v ValueType) Label() string {
	if v == Percentage {
		return "Porcentaje (%)"
	}
	return "Monto fijo ($)"
}

// Form is the add-change input state.
type Form struct {
	Kind      analysis.Kind
	Category  string
	ValueType ValueType
	Value     string
}

// Outcome reports what Add did.
type Outcome int

const (
	// Ignored means the input was invalid and nothing changed.
	Ignored Outcome = iota
	// Added means a change was appended.
	Added
	// NeedsCategory means the caller must prompt for a category name and
	// pass it to CompleteCategory.
	NeedsCategory
)

// suggestDistance is the largest edit distance that triggers a hint.
const suggestDistance = 2

// Builder owns the ordered change list and the category vocabulary.
type Builder struct {
	Form Form

	changes    []analysis.Change
	categories []string
	pending    *float64
}

// New returns an empty Builder defaulting to a fixed-amount expense.
func New() *Builder {
	return &Builder{Form: Form{Kind: analysis.Expense, ValueType: Amount}}
}

// Add validates the form and appends a change. Only Form.Value is cleared on
// success; kind, category and value type stay selected.
func (b *Builder) Add() Outcome {
	value, ok := parseValue(b.Form.Value)
	if !ok || !b.Form.Kind.Valid() {
		return Ignored
	}
	var category string
	if b.Form.Kind == analysis.Expense {
		switch b.Form.Category {
		case "":
			return Ignored
		case NewCategory:
			b.pending = &value
			return NeedsCategory
		default:
			category = b.Form.Category
		}
	}
	b.append(category, value)
	return Added
}

// CompleteCategory finishes an Add that returned NeedsCategory. A blank name
// aborts the add. The name joins the vocabulary and becomes selected.
func (b *Builder) CompleteCategory(name string) bool {
	if b.pending == nil {
		return false
	}
	value := *b.pending
	b.pending = nil
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	b.insertCategory(name)
	b.Form.Category = name
	b.append(name, value)
	return true
}

// CancelCategory drops an outstanding prompt.
func (b *Builder) CancelCategory() { b.pending = nil }

// Prompting reports whether a category name is awaited.
func (b *Builder) Prompting() bool { return b.pending != nil }

func (b *Builder) append(category string, value float64) {
	c := analysis.Change{Kind: b.Form.Kind, Category: category}
	if b.Form.ValueType == Percentage {
		c.Adjustment = analysis.Percentage{Fraction: value / 100}
	} else {
		c.Adjustment = analysis.FixedAmount{Amount: value}
	}
	b.changes = append(b.changes, c)
	b.Form.Value = ""
}

// Remove deletes the change at i. Out of range indexes are ignored.
func (b *Builder) Remove(i int) bool {
	if i < 0 || i >= len(b.changes) {
		return false
	}
	b.changes = slices.Delete(b.changes, i, i+1)
	return true
}

// Changes returns a copy of the change list.
func (b *Builder) Changes() []analysis.Change {
	return slices.Clone(b.changes)
}

// Len is the number of changes.
func (b *Builder) Len() int { return len(b.changes) }

// Derive replaces the vocabulary with the snapshot's expense categories and
// selects the first one when nothing is selected.
func (b *Builder) Derive(s *analysis.Snapshot) {
	b.categories = nil
	if s != nil && s.Descriptive != nil {
		b.categories = s.Descriptive.Categories()
	}
	if b.Form.Category == "" && len(b.categories) > 0 {
		b.Form.Category = b.categories[0]
	}
}

// Categories is the sorted vocabulary.
func (b *Builder) Categories() []string { return slices.Clone(b.categories) }

// Options is the vocabulary followed by the NewCategory sentinel.
func (b *Builder) Options() []string {
	return append(b.Categories(), NewCategory)
}

func (b *Builder) insertCategory(name string) {
	i, found := slices.BinarySearch(b.categories, name)
	if found {
		return
	}
	b.categories = slices.Insert(b.categories, i, name)
}

// Suggest returns an existing category close to name, ignoring case. An exact
// match returns nothing.
func (b *Builder) Suggest(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	lower := strings.ToLower(name)
	best, bestDist := "", suggestDistance+1
	for _, c := range b.categories {
		if c == name {
			return "", false
		}
		d := levenshtein.ComputeDistance(lower, strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}

func parseValue(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

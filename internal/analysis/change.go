package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the side of the ledger a scenario change affects.
type Kind string

const (
	Income  Kind = "ingreso"
	Expense Kind = "gasto"
)

func (k Kind) Valid() bool { return k == Income || k == Expense }

// Label is the capitalised display name of the kind.
func (k Kind) Label() string {
	if k == Income {
		return "Ingreso"
	}
	return "Gasto"
}

// Adjustment is either a Percentage or a FixedAmount.
type Adjustment interface {
	isAdjustment()
}

// Percentage scales the affected flow by Fraction (0.1 is +10%).
type Percentage struct {
	Fraction float64
}

// FixedAmount adds Amount per month to the affected flow.
type FixedAmount struct {
	Amount float64
}

func (Percentage) isAdjustment()  {}
func (FixedAmount) isAdjustment() {}

// Change is one hypothetical adjustment in a scenario. An empty Category
// means the change applies to the flow in general.
type Change struct {
	Kind       Kind
	Category   string
	Adjustment Adjustment
}

var (
	ErrInvalidKind       = errors.New("scenario change: invalid tipo")
	ErrMissingCategory   = errors.New("scenario change: gasto requires categoria")
	ErrMissingAdjustment = errors.New("scenario change: exactly one of porcentaje_cambio or monto_fijo_cambio is required")
)

// Validate reports whether c can be sent to the simulation endpoint.
func (c Change) Validate() error {
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	if c.Kind == Expense && c.Category == "" {
		return ErrMissingCategory
	}
	switch c.Adjustment.(type) {
	case Percentage, FixedAmount:
		return nil
	default:
		return ErrMissingAdjustment
	}
}

type changeWire struct {
	Kind       Kind     `json:"tipo"`
	Category   *string  `json:"categoria"`
	Percentage *float64 `json:"porcentaje_cambio"`
	Fixed      *float64 `json:"monto_fijo_cambio"`
}

func (c Change) MarshalJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	w := changeWire{Kind: c.Kind}
	if c.Category != "" {
		cat := c.Category
		w.Category = &cat
	}
	switch a := c.Adjustment.(type) {
	case Percentage:
		v := a.Fraction
		w.Percentage = &v
	case FixedAmount:
		v := a.Amount
		w.Fixed = &v
	}
	return json.Marshal(w)
}

func (c *Change) UnmarshalJSON(data []byte) error {
	var w changeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Change{Kind: w.Kind}
	if w.Category != nil {
		out.Category = *w.Category
	}
	switch {
	case w.Percentage != nil && w.Fixed != nil:
		return ErrMissingAdjustment
	case w.Percentage != nil:
		out.Adjustment = Percentage{Fraction: *w.Percentage}
	case w.Fixed != nil:
		out.Adjustment = FixedAmount{Amount: *w.Fixed}
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*c = out
	return nil
}

// Describe renders a one-line summary such as "Gasto (Renta): +10.0%".
// money formats fixed amounts.
func (c Change) Describe(money func(float64) string) string {
	text := c.Kind.Label()
	if c.Category != "" {
		text += " (" + c.Category + ")"
	} else {
		text += " (General)"
	}
	switch a := c.Adjustment.(type) {
	case Percentage:
		pct := a.Fraction * 100
		text += ": " + sign(pct) + fmt.Sprintf("%.1f%%", pct)
	case FixedAmount:
		text += ": " + sign(a.Amount) + money(a.Amount) + " / mes"
	}
	return text
}

func sign(v float64) string {
	if v >= 0 {
		return "+"
	}
	return ""
}

package analysis

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Snapshot is the result bundle returned by the analysis endpoint.
// A Snapshot is never modified after decoding; callers share it by pointer.
type Snapshot struct {
	FileType    string          `json:"tipo_archivo"`
	Descriptive *Descriptive    `json:"analisis_descriptivo"`
	Predictive  json.RawMessage `json:"analisis_predictivo"`
	AI          *Insight        `json:"analisis_ia"`
}

// Insight holds the free-text recommendation produced alongside the analysis.
type Insight struct {
	Recommendation string `json:"recomendacion"`
}

// Descriptive is the descriptive fragment of a snapshot. The raw JSON is kept
// so fields not modelled here are forwarded untouched to later requests.
type Descriptive struct {
	TotalIncome        float64            `json:"total_ingresos"`
	TotalExpenses      float64            `json:"total_gastos"`
	NetBalance         float64            `json:"balance_neto"`
	ExpensesByCategory map[string]float64 `json:"principales_gastos_por_categoria"`

	raw json.RawMessage
}

type descriptiveFields Descriptive

func (d *Descriptive) UnmarshalJSON(data []byte) error {
	var f descriptiveFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*d = Descriptive(f)
	d.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (d Descriptive) MarshalJSON() ([]byte, error) {
	if len(bytes.TrimSpace(d.raw)) > 0 {
		return d.raw, nil
	}
	return json.Marshal(descriptiveFields(d))
}

// Categories returns the expense category names in ascending order.
func (d *Descriptive) Categories() []string {
	if d == nil || len(d.ExpensesByCategory) == 0 {
		return nil
	}
	out := make([]string, 0, len(d.ExpensesByCategory))
	for name := range d.ExpensesByCategory {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CategoryAmount pairs an expense category with its total.
type CategoryAmount struct {
	Name   string
	Amount float64
}

// TopExpenses returns the expense categories ordered by descending amount,
// ties broken by name.
func (d *Descriptive) TopExpenses() []CategoryAmount {
	names := d.Categories()
	out := make([]CategoryAmount, 0, len(names))
	for _, n := range names {
		out = append(out, CategoryAmount{Name: n, Amount: d.ExpensesByCategory[n]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out
}

// HasDescriptive reports whether the snapshot carries a descriptive analysis.
func (s *Snapshot) HasDescriptive() bool {
	return s != nil && s.Descriptive != nil
}

// HasPredictive reports whether the snapshot carries a non-null predictive analysis.
func (s *Snapshot) HasPredictive() bool {
	if s == nil {
		return false
	}
	p := bytes.TrimSpace(s.Predictive)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}

// Label is the heading shown above the dashboard.
func (s *Snapshot) Label() string {
	if s == nil || s.FileType == "" {
		return "Estadísticas Generales"
	}
	return s.FileType
}

// Recommendation returns the analysis recommendation text, if any.
func (s *Snapshot) Recommendation() string {
	if s == nil || s.AI == nil {
		return ""
	}
	return s.AI.Recommendation
}

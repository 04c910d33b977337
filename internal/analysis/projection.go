package analysis

import (
	"encoding/json"
	"time"
)

// MinMonths and MaxMonths bound meses_a_proyectar.
const (
	MinMonths = 1
	MaxMonths = 60
)

// ProjectionRequest is the body sent to the simulation endpoint.
type ProjectionRequest struct {
	Descriptive *Descriptive `json:"analisis_descriptivo"`
	Months      int          `json:"meses_a_proyectar"`
	Changes     []Change     `json:"cambios"`
}

// ProjectionResponse is the raw simulation reply. Nil slices mean the field
// was missing from the body.
type ProjectionResponse struct {
	Dates  []string  `json:"fechas"`
	Values []float64 `json:"proyeccion"`
}

// PlanRequest is the body sent to the goal-planning endpoint.
type PlanRequest struct {
	Goal        string          `json:"meta_usuario"`
	Descriptive *Descriptive    `json:"analisis_descriptivo"`
	Predictive  json.RawMessage `json:"analisis_predictivo"`
}

// PlanResponse is the goal-planning reply.
type PlanResponse struct {
	Recommendation string `json:"recomendacion"`
}

// Point is one chartable projection sample.
type Point struct {
	Period string
	Value  float64
}

// Time parses Period as a year-month. The zero time is returned when the
// label is not in YYYY-MM form.
func (p Point) Time() time.Time {
	t, err := time.Parse("2006-01", p.Period)
	if err != nil {
		return time.Time{}
	}
	return t
}

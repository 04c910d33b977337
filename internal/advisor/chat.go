// Package advisor keeps the goal-planning conversation of a detail session.
package advisor

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jask/copiloto/internal/analysis"
	"github.com/jask/copiloto/internal/api"
)

// Greeting opens every conversation.
const Greeting = "¡Hola! ¿Qué meta financiera tienes en mente?"

// Fallback is shown when the planner returns no recommendation.
const Fallback = "No pude generar un plan."

// MissingAnalysisMessage is shown when Send returns ErrMissingAnalysis.
const MissingAnalysisMessage = "No se pueden enviar mensajes. Faltan datos del análisis inicial."

var (
	ErrEmpty           = errors.New("empty message")
	ErrInFlight        = errors.New("advisor request already running")
	ErrMissingAnalysis = errors.New("snapshot lacks descriptive or predictive analysis")
)

var messages = api.Messages{
	ServerPrefix: "Error del servidor: ",
	Network:      "No se pudo conectar con el servidor.",
	LocalPrefix:  "Error: ",
}

// Sender identifies who wrote a message.
type Sender int

const (
	Bot Sender = iota
	User
)

func (s Sender) String() string {
	if s == User {
		return "user"
	}
	return "bot"
}

// Message is one conversation entry. Text may contain markup.
type Message struct {
	Sender Sender
	Text   string
}

// Planner performs the goal-planning request.
type Planner interface {
	GeneratePlan(ctx context.Context, req analysis.PlanRequest) (analysis.PlanResponse, error)
}

// Job is one planning request to execute off the event loop.
type Job struct {
	Run     uint64
	Request analysis.PlanRequest
}

// Result is the outcome of a Job.
type Result struct {
	Run            uint64
	Recommendation string
	Err            error
}

// Execute sends the request.
func (j Job) Execute(ctx context.Context, p Planner) Result {
	resp, err := p.GeneratePlan(ctx, j.Request)
	return Result{Run: j.Run, Recommendation: resp.Recommendation, Err: err}
}

// Chat is the append-only conversation. Methods must be called from the
// event loop.
type Chat struct {
	log      logrus.FieldLogger
	messages []Message
	errMsg   string
	loading  bool
	run      uint64
}

// NewChat returns a conversation holding the greeting.
func NewChat(log logrus.FieldLogger) *Chat {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Chat{
		log:      log.WithField("component", "advisor"),
		messages: []Message{{Sender: Bot, Text: Greeting}},
	}
}

// Send appends the user's goal and returns the request to execute. Blank
// text, a pending request or a snapshot without both analyses leave the
// conversation unchanged.
func (c *Chat) Send(s *analysis.Snapshot, text string) (Job, error) {
	goal := strings.TrimSpace(text)
	if goal == "" {
		return Job{}, ErrEmpty
	}
	if c.loading {
		return Job{}, ErrInFlight
	}
	if !s.HasDescriptive() || !s.HasPredictive() {
		return Job{}, ErrMissingAnalysis
	}
	c.messages = append(c.messages, Message{Sender: User, Text: goal})
	c.run++
	c.loading = true
	c.errMsg = ""
	c.log.WithField("run", c.run).Info("send goal")
	return Job{Run: c.run, Request: analysis.PlanRequest{
		Goal:        goal,
		Descriptive: s.Descriptive,
		Predictive:  s.Predictive,
	}}, nil
}

// Complete appends the reply for res. Results for older runs are ignored.
func (c *Chat) Complete(res Result) bool {
	if res.Run != c.run || !c.loading {
		c.log.WithField("run", res.Run).Debug("ignored stale advisor result")
		return false
	}
	c.loading = false
	if res.Err != nil {
		c.errMsg = messages.Describe(res.Err)
		c.messages = append(c.messages, Message{Sender: Bot, Text: "Error: " + c.errMsg})
		c.log.WithError(res.Err).Warn("plan request failed")
		return true
	}
	text := res.Recommendation
	if strings.TrimSpace(text) == "" {
		text = Fallback
	}
	c.messages = append(c.messages, Message{Sender: Bot, Text: text})
	return true
}

// Messages returns a copy of the conversation.
func (c *Chat) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Chat) Err() string { return c.errMsg }

// SetErr records a message shown under the input without touching the log.
func (c *Chat) SetErr(msg string) { c.errMsg = msg }

func (c *Chat) Loading() bool { return c.loading }

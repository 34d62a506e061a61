// internal/workflow/engine.go
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/chezona/chorom/internal/common/logger"
	"github.com/chezona/chorom/internal/common/metrics"
	"github.com/chezona/chorom/internal/common/observability"
	"github.com/chezona/chorom/internal/models"
)

// Step identifies a node of the message graph.
type Step int

const (
	StepClassify Step = iota
	StepSearch
	StepStructure
	StepWrite
	StepTerminal
)

func (s Step) String() string {
	switch s {
	case StepClassify:
		return "classify"
	case StepSearch:
		return "search"
	case StepStructure:
		return "structure"
	case StepWrite:
		return "write"
	case StepTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

const InternalErrorMessage = "Sorry, an internal error occurred while processing your request."

// Stepper runs one node against the shared state.
type Stepper interface {
	Step(ctx context.Context, st *models.State)
}

type Steps struct {
	Classify  Stepper
	Search    Stepper
	Structure Stepper
	Write     Stepper
}

// Engine drives one message through classify, then either search or
// structure and write. Runs are independent; an Engine may serve many
// goroutines at once.
type Engine struct {
	steps  Steps
	obs    *observability.Observability
	logger logger.Logger
}

// NewEngine builds an engine. obs may be nil.
func NewEngine(steps Steps, obs *observability.Observability, log logger.Logger) *Engine {
	return &Engine{
		steps:  steps,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "workflow"}),
	}
}

// Handle runs the graph for one inbound event and returns the reply.
func (e *Engine) Handle(ctx context.Context, event models.InboundEvent) string {
	return e.Run(ctx, models.NewState(event)).Response
}

// Run executes the graph over st and returns it. The returned state always
// carries a response.
func (e *Engine) Run(ctx context.Context, st *models.State) *models.State {
	start := time.Now()
	ctx, span := e.obs.StartSpan(ctx, "workflow.run", attribute.String("sender.id", st.SenderID))
	defer span.End()

	step := StepClassify
	for step != StepTerminal {
		step = e.runStep(ctx, step, st)
	}

	if st.Respond(GenericMessage) {
		e.logger.Warn("run ended without a response", map[string]interface{}{
			"senderId": st.SenderID,
			"intent":   string(st.Intent),
		})
	}

	outcome := outcomeOf(st)
	intent := string(st.Intent)
	if intent == "" {
		intent = "none"
	}
	metrics.WorkflowRuns.WithLabelValues(intent, outcome).Inc()
	e.obs.RecordMessageHandled(ctx, intent, outcome, time.Since(start))
	span.SetAttributes(attribute.String("intent", intent), attribute.String("outcome", outcome))

	e.logger.Info("message handled", map[string]interface{}{
		"senderId":   st.SenderID,
		"messageId":  st.MessageID,
		"intent":     intent,
		"outcome":    outcome,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return st
}

// runStep executes one node and returns the next. A panic inside the node
// aborts the run with the internal-error reply.
func (e *Engine) runStep(ctx context.Context, step Step, st *models.State) (next Step) {
	ctx, span := e.obs.StartSpan(ctx, "workflow."+step.String())
	timer := prometheus.NewTimer(metrics.WorkflowStepDuration.WithLabelValues(step.String()))

	defer func() {
		timer.ObserveDuration()
		if r := recover(); r != nil {
			e.logger.Error("workflow step panicked", map[string]interface{}{
				"step":     step.String(),
				"senderId": st.SenderID,
				"panic":    fmt.Sprint(r),
			})
			span.SetStatus(codes.Error, fmt.Sprint(r))
			st.Abort(InternalErrorMessage)
			next = StepTerminal
		}
		span.End()
	}()

	switch step {
	case StepClassify:
		e.steps.Classify.Step(ctx, st)
		switch Route(st) {
		case DecisionSearch:
			return StepSearch
		case DecisionStructureIngestion:
			return StepStructure
		default:
			return StepTerminal
		}
	case StepSearch:
		e.steps.Search.Step(ctx, st)
		return StepTerminal
	case StepStructure:
		e.steps.Structure.Step(ctx, st)
		if st.CanonicalItem == nil {
			return StepTerminal
		}
		return StepWrite
	case StepWrite:
		e.steps.Write.Step(ctx, st)
		return StepTerminal
	default:
		return StepTerminal
	}
}

func outcomeOf(st *models.State) string {
	switch st.Intent {
	case models.IntentError:
		return "error"
	case models.IntentQuery:
		if len(st.SearchHits) > 0 {
			return "hits"
		}
		return "no_hits"
	case models.IntentIngest:
		if st.AsyncTask != nil {
			return "enqueued"
		}
		return "rejected"
	default:
		return "replied"
	}
}

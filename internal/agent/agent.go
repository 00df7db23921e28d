// Package agent classifies a free-form instruction with an LLM into add, search or both, and
// carries the plan out against the vecsearch service.
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/models"
)

// Agent turns instructions into service calls.
type Agent struct {
	llm    Completer
	store  Store
	k      int
	logger *zap.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithK sets the number of matches requested per search; 0 leaves the service default.
func WithK(k int) Option {
	return func(a *Agent) { a.k = k }
}

// New returns an Agent classifying with llm and acting on store.
func New(llm Completer, store Store, opts ...Option) *Agent {
	a := &Agent{llm: llm, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Report is what a run did.
type Report struct {
	Instruction string                `json:"instruction"`
	Plan        *Plan                 `json:"plan"`
	Add         *models.InsertOutcome `json:"add,omitempty"`
	Search      *models.SearchOutcome `json:"search,omitempty"`
}

// Classify asks the model which action instruction calls for.
func (a *Agent) Classify(ctx context.Context, instruction string) (*Plan, error) {
	reply, err := a.llm.Complete(ctx, BuildPrompt(instruction))
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	a.logger.Debug("model reply", zap.String("reply", reply))
	plan, err := ParsePlan(reply)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	a.logger.Info("action detected", zap.String("action", string(plan.Action)),
		zap.Int("sentences", len(plan.Sentences)), zap.String("query", plan.Query))
	return plan, nil
}

// Run classifies instruction and executes the plan: sentences are added before the query is
// searched. A blank instruction runs DefaultInstruction. Failed service calls are reported in
// the Report; the error is set only when classification fails or the service is unreachable.
func (a *Agent) Run(ctx context.Context, instruction string) (*Report, error) {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	report := &Report{Instruction: instruction}
	plan, err := a.Classify(ctx, instruction)
	if err != nil {
		return report, err
	}
	report.Plan = plan

	if plan.adds() {
		out, err := a.store.Add(ctx, plan.Sentences)
		if err != nil {
			return report, fmt.Errorf("add documents: %w", err)
		}
		report.Add = &out
		if !out.Success {
			a.logger.Warn("add failed", zap.String("kind", string(out.Kind)), zap.String("message", out.Message))
		}
	}
	if plan.searches() {
		out, err := a.store.Search(ctx, plan.Query, a.k)
		if err != nil {
			return report, fmt.Errorf("search documents: %w", err)
		}
		report.Search = &out
		if !out.OK() {
			a.logger.Warn("search failed", zap.String("kind", string(out.Kind)), zap.Error(out.Err))
		}
	}
	return report, nil
}

package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Action is what the classifier decided the user wants.
type Action string

const (
	ActionAdd    Action = "add"
	ActionSearch Action = "search"
	ActionBoth   Action = "both"
)

// ErrInvalidPlan is returned when the model reply is not a usable plan.
var ErrInvalidPlan = errors.New("invalid plan from model")

// Plan is the classifier's structured reply.
type Plan struct {
	Action    Action   `json:"action"`
	Sentences []string `json:"sentences,omitempty"`
	Query     string   `json:"query,omitempty"`
}

var actionAliases = map[string]Action{
	"add":              ActionAdd,
	"add_documents":    ActionAdd,
	"search":           ActionSearch,
	"search_documents": ActionSearch,
	"both":             ActionBoth,
}

// ParsePlan decodes a model reply into a Plan. Markdown code fences and text around the JSON
// object are tolerated. The action must be present and its fields must be non-empty.
func ParsePlan(reply string) (*Plan, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in reply %q", ErrInvalidPlan, reply)
	}
	var raw struct {
		Action    string   `json:"action"`
		Sentences []string `json:"sentences"`
		Query     string   `json:"query"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if raw.Action == "" {
		return nil, fmt.Errorf("%w: action is missing", ErrInvalidPlan)
	}
	action, ok := actionAliases[strings.ToLower(strings.TrimSpace(raw.Action))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidPlan, raw.Action)
	}

	plan := &Plan{Action: action, Query: strings.TrimSpace(raw.Query)}
	for _, s := range raw.Sentences {
		if s = strings.TrimSpace(s); s != "" {
			plan.Sentences = append(plan.Sentences, s)
		}
	}
	if plan.adds() && len(plan.Sentences) == 0 {
		return nil, fmt.Errorf("%w: action %s needs sentences", ErrInvalidPlan, action)
	}
	if plan.searches() && plan.Query == "" {
		return nil, fmt.Errorf("%w: action %s needs a query", ErrInvalidPlan, action)
	}
	return plan, nil
}

func (p *Plan) adds() bool {
	return p.Action == ActionAdd || p.Action == ActionBoth
}

func (p *Plan) searches() bool {
	return p.Action == ActionSearch || p.Action == ActionBoth
}

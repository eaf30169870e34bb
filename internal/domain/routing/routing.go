// Package routing decides which configured worker receives a task.
package routing

import (
	"errors"
	"strings"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/agent"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/task"
)

// ErrUnresolvable means the task carries no explicit worker relation, no
// capability keyword matched, and no default worker is configured.
var ErrUnresolvable = errors.New("no worker resolves for task")

// Reason records which resolution rule produced a route.
type Reason string

const (
	ReasonExplicit Reason = "explicit"
	ReasonKeyword  Reason = "keyword"
	ReasonDefault  Reason = "default"
)

// Route is the resolver's decision for one task.
type Route struct {
	Agent  agent.Agent
	Reason Reason
	Score  int
}

// Table resolves tasks against a fixed, ordered set of workers. Declaration
// order is the worker priority used to break keyword-score ties. The table
// holds no hidden state, so identical inputs always yield identical routes.
type Table struct {
	agents      []agent.Agent
	defaultName string
}

// NewTable builds a resolver over the configured workers. defaultName may be
// empty, in which case tasks matching no rule are unresolvable.
func NewTable(agents []agent.Agent, defaultName string) *Table {
	return &Table{agents: agents, defaultName: defaultName}
}

// Resolve picks the worker for t. Rules apply in strict order: the explicit
// worker relation on the task, then capability-keyword scoring, then the
// configured default. An explicit relation is authoritative even when it
// names a worker absent from the table.
func (tb *Table) Resolve(t task.Task) (Route, error) {
	if t.AgentName != "" || t.AgentID != "" {
		if a, ok := tb.lookup(t.AgentName, t.AgentID); ok {
			return Route{Agent: a, Reason: ReasonExplicit}, nil
		}
		ad := agent.Agent{Name: t.AgentName, ID: t.AgentID, Mode: agent.ModePrimary}
		if ad.Name == "" {
			ad.Name = t.AgentID
		}
		return Route{Agent: ad, Reason: ReasonExplicit}, nil
	}

	if best, score := tb.scoreKeywords(t); score > 0 {
		return Route{Agent: best, Reason: ReasonKeyword, Score: score}, nil
	}

	if tb.defaultName != "" {
		if a, ok := tb.lookup(tb.defaultName, ""); ok {
			return Route{Agent: a, Reason: ReasonDefault}, nil
		}
	}
	return Route{}, ErrUnresolvable
}

// scoreKeywords counts, per worker, the capability tags appearing as
// case-insensitive substrings of the task's title, description, and type.
// Ties keep the earliest-declared worker.
func (tb *Table) scoreKeywords(t task.Task) (agent.Agent, int) {
	text := strings.ToLower(t.Title + " " + t.Description + " " + t.Type)
	var best agent.Agent
	bestScore := 0
	for _, a := range tb.agents {
		score := 0
		for _, kw := range a.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = a, score
		}
	}
	return best, bestScore
}

// lookup finds a configured worker by external id when both sides carry one,
// otherwise by case-insensitive name.
func (tb *Table) lookup(name, id string) (agent.Agent, bool) {
	for _, a := range tb.agents {
		if id != "" && a.ID != "" && a.ID == id {
			return a, true
		}
	}
	for _, a := range tb.agents {
		if name != "" && strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return agent.Agent{}, false
}

// Agents returns the table's workers in declaration order.
func (tb *Table) Agents() []agent.Agent {
	out := make([]agent.Agent, len(tb.agents))
	copy(out, tb.agents)
	return out
}

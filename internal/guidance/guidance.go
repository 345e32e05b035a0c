// Package guidance holds the caregiver-facing text: stage instructions,
// critical question wording and emergency protocols.
package guidance

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/laborguide/internal/decision"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

//go:embed content.yaml
var content []byte

// #region types
type StageGuide struct {
	ID           state.Stage `yaml:"id"`
	Title        string      `yaml:"title"`
	TitleEN      string      `yaml:"title_en"`
	Instructions []string    `yaml:"instructions"`
	NextHint     string      `yaml:"next_hint"`
}

type Option struct {
	Label string            `yaml:"label"`
	Value decision.Response `yaml:"value"`
}

type Question struct {
	ID      state.DecisionID `yaml:"id"`
	Text    string           `yaml:"text"`
	Voice   string           `yaml:"voice"`
	Options []Option         `yaml:"options"`
}

type Step struct {
	Instruction          string `yaml:"instruction"`
	Critical             bool   `yaml:"critical"`
	RequiresConfirmation bool   `yaml:"requires_confirmation"`
}

type Protocol struct {
	ID      state.EmergencyType `yaml:"id"`
	Title   string              `yaml:"title"`
	TitleEN string              `yaml:"title_en"`
	Steps   []Step              `yaml:"steps"`
}

// Catalog is the validated guidance content, indexed for lookup.
type Catalog struct {
	stages    map[state.Stage]StageGuide
	questions map[state.DecisionID]Question
	protocols map[state.EmergencyType]Protocol
}

type document struct {
	Stages    []StageGuide `yaml:"stages"`
	Questions []Question   `yaml:"questions"`
	Protocols []Protocol   `yaml:"protocols"`
}

// #endregion types

// #region load
// Load parses the embedded content.
func Load() (*Catalog, error) {
	return Parse(content)
}

// Parse decodes and validates a guidance document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse guidance: %w", err)
	}

	c := &Catalog{
		stages:    make(map[state.Stage]StageGuide, len(doc.Stages)),
		questions: make(map[state.DecisionID]Question, len(doc.Questions)),
		protocols: make(map[state.EmergencyType]Protocol, len(doc.Protocols)),
	}
	for _, s := range doc.Stages {
		if _, dup := c.stages[s.ID]; dup {
			return nil, fmt.Errorf("guidance: duplicate stage %q", s.ID)
		}
		c.stages[s.ID] = s
	}
	for _, q := range doc.Questions {
		if _, dup := c.questions[q.ID]; dup {
			return nil, fmt.Errorf("guidance: duplicate question %q", q.ID)
		}
		c.questions[q.ID] = q
	}
	for _, p := range doc.Protocols {
		if _, dup := c.protocols[p.ID]; dup {
			return nil, fmt.Errorf("guidance: duplicate protocol %q", p.ID)
		}
		c.protocols[p.ID] = p
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate requires an entry for every stage, decision and emergency, and
// question options that match the decision's response set exactly.
func (c *Catalog) validate() error {
	for _, s := range state.Stages {
		g, ok := c.stages[s]
		if !ok {
			return fmt.Errorf("guidance: missing stage %q", s)
		}
		if g.Title == "" || len(g.Instructions) == 0 {
			return fmt.Errorf("guidance: stage %q has no title or instructions", s)
		}
	}
	for id := range c.stages {
		if !id.Valid() {
			return fmt.Errorf("guidance: unknown stage %q", id)
		}
	}

	for _, p := range decision.Catalog() {
		q, ok := c.questions[p.ID]
		if !ok {
			return fmt.Errorf("guidance: missing question %q", p.ID)
		}
		if q.Text == "" {
			return fmt.Errorf("guidance: question %q has no text", p.ID)
		}
		if len(q.Options) != len(p.Responses) {
			return fmt.Errorf("guidance: question %q has %d options, want %d", p.ID, len(q.Options), len(p.Responses))
		}
		for _, o := range q.Options {
			if !p.Accepts(o.Value) {
				return fmt.Errorf("guidance: question %q option %q is not a valid response", p.ID, o.Value)
			}
		}
	}
	for id := range c.questions {
		if _, ok := decision.Lookup(id); !ok {
			return fmt.Errorf("guidance: unknown question %q", id)
		}
	}

	known := make(map[state.EmergencyType]bool, len(state.EmergencyTypes))
	for _, e := range state.EmergencyTypes {
		known[e] = true
		p, ok := c.protocols[e]
		if !ok {
			return fmt.Errorf("guidance: missing protocol %q", e)
		}
		if len(p.Steps) == 0 {
			return fmt.Errorf("guidance: protocol %q has no steps", e)
		}
	}
	for id := range c.protocols {
		if !known[id] {
			return fmt.Errorf("guidance: unknown protocol %q", id)
		}
	}
	return nil
}

// #endregion load

// #region lookup
func (c *Catalog) Stage(s state.Stage) (StageGuide, bool) {
	g, ok := c.stages[s]
	return g, ok
}

func (c *Catalog) Question(id state.DecisionID) (Question, bool) {
	q, ok := c.questions[id]
	return q, ok
}

func (c *Catalog) Protocol(e state.EmergencyType) (Protocol, bool) {
	p, ok := c.protocols[e]
	return p, ok
}

// Option returns the 1-based option n of question id.
func (q Question) Option(n int) (Option, bool) {
	if n < 1 || n > len(q.Options) {
		return Option{}, false
	}
	return q.Options[n-1], true
}

// #endregion lookup

package replay

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/danielpatrickdp/laborguide/internal/engine"
	"github.com/danielpatrickdp/laborguide/internal/stage"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string           `json:"description"`
	Assessment  stage.Assessment `json:"assessment"`
	Config      FixtureConfig    `json:"config"`
	Steps       []Step           `json:"steps"`
	ExpectFinal *FinalState      `json:"expect_final,omitempty"`
}

// FixtureConfig mirrors gate.Config with JSON tags. Zero values use the defaults.
type FixtureConfig struct {
	RetainedPlacentaMinutes int `json:"retained_placenta_minutes,omitempty"`
}

type StepKind string

const (
	StepAnswer  StepKind = "answer"
	StepAdvance StepKind = "advance"
	StepClear   StepKind = "clear"
	StepWait    StepKind = "wait"
)

// Step is one caller action. Which fields are read depends on Kind.
type Step struct {
	ID       string           `json:"id,omitempty"`
	Kind     StepKind         `json:"kind"`
	Decision state.DecisionID `json:"decision,omitempty"`
	Response string           `json:"response,omitempty"`
	Stage    state.Stage      `json:"stage,omitempty"`
	Minutes  float64          `json:"minutes,omitempty"`

	// Expect is the next action after the step; nil skips the check.
	Expect *engine.NextAction `json:"expect,omitempty"`
	// ExpectError names the error class the step must fail with.
	ExpectError string `json:"expect_error,omitempty"`
}

// FinalState captures the expected end of a replay.
type FinalState struct {
	Stage           state.Stage         `json:"stage"`
	EmergencyActive bool                `json:"emergency_active"`
	EmergencyType   state.EmergencyType `json:"emergency_type,omitempty"`
	Decisions       int                 `json:"decisions"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(fs afero.Fs, path string) (*Fixture, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON, creating parent directories.
func WriteFixture(fs afero.Fs, path string, f Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(fs, path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// Validate checks that every step carries the fields its kind needs.
func (f *Fixture) Validate() error {
	for i, s := range f.Steps {
		switch s.Kind {
		case StepAnswer:
			if s.Decision == "" {
				return fmt.Errorf("step %d: answer without decision", i)
			}
		case StepAdvance:
			if s.Stage == "" {
				return fmt.Errorf("step %d: advance without stage", i)
			}
		case StepWait:
			if s.Minutes <= 0 {
				return fmt.Errorf("step %d: wait needs positive minutes", i)
			}
		case StepClear:
		default:
			return fmt.Errorf("step %d: unknown kind %q", i, s.Kind)
		}
	}
	return nil
}

// #endregion fixture-loader

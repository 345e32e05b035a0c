package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/laborguide/internal/engine"
	"github.com/danielpatrickdp/laborguide/internal/guidance"
	"github.com/danielpatrickdp/laborguide/internal/stage"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region render

func renderAction(w io.Writer, c *guidance.Catalog, a engine.NextAction) {
	switch a.Action {
	case engine.ActionAsk:
		renderQuestion(w, c, a.Decision)
	case engine.ActionGuide:
		renderStage(w, c, a.Stage)
	case engine.ActionEmergency:
		renderProtocol(w, c, a.Emergency)
	}
}

func renderQuestion(w io.Writer, c *guidance.Catalog, id state.DecisionID) {
	q, ok := c.Question(id)
	if !ok {
		fmt.Fprintf(w, "\n? %s\n", id)
		return
	}
	fmt.Fprintf(w, "\n? %s\n", q.Text)
	for i, o := range q.Options {
		fmt.Fprintf(w, "  %d) %s (%s)\n", i+1, o.Label, o.Value)
	}
}

func renderStage(w io.Writer, c *guidance.Catalog, s state.Stage) {
	g, ok := c.Stage(s)
	if !ok {
		fmt.Fprintf(w, "\n== %s ==\n", s)
		return
	}
	fmt.Fprintf(w, "\n== %s | %s ==\n", g.TitleEN, g.Title)
	for _, line := range g.Instructions {
		fmt.Fprintf(w, "  - %s\n", line)
	}
	if g.NextHint != "" {
		fmt.Fprintf(w, "  > %s\n", g.NextHint)
	}
	if next := stage.Next(s); len(next) > 0 {
		names := make([]string, len(next))
		for i, n := range next {
			names[i] = string(n)
		}
		fmt.Fprintf(w, "  (type 'next' or 'next <stage>': %s)\n", strings.Join(names, ", "))
	}
}

func renderProtocol(w io.Writer, c *guidance.Catalog, e state.EmergencyType) {
	p, ok := c.Protocol(e)
	if !ok {
		fmt.Fprintf(w, "\n!!! EMERGENCY: %s\n", e)
		return
	}
	fmt.Fprintf(w, "\n!!! EMERGENCY: %s | %s\n", p.TitleEN, p.Title)
	for i, step := range p.Steps {
		var marks []string
		if step.Critical {
			marks = append(marks, "critical")
		}
		if step.RequiresConfirmation {
			marks = append(marks, "confirm")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " [" + strings.Join(marks, ", ") + "]"
		}
		fmt.Fprintf(w, "  %d. %s%s\n", i+1, step.Instruction, suffix)
	}
	fmt.Fprintln(w, "  (type 'done' once the protocol is complete)")
}

// #endregion render

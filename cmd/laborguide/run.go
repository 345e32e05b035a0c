package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/laborguide/internal/decision"
	"github.com/danielpatrickdp/laborguide/internal/engine"
	"github.com/danielpatrickdp/laborguide/internal/guidance"
	"github.com/danielpatrickdp/laborguide/internal/intent"
	"github.com/danielpatrickdp/laborguide/internal/stage"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

type runOptions struct {
	MetricsAddr string
}

func NewRunCmd() *cobra.Command {
	options := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start or resume the interactive guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr := options.MetricsAddr
			if !cmd.Flags().Changed("metrics-addr") {
				addr = getConfig(ctx).MetricsAddr
			}

			var registry *prometheus.Registry
			if addr != "" {
				registry = prometheus.NewRegistry()
				stop := serveMetrics(addr, registry)
				defer stop()
			}

			sess, err := openFromCmd(ctx, registry)
			if err != nil {
				return err
			}
			defer sess.Close()

			catalog, err := guidance.Load()
			if err != nil {
				return err
			}

			r := &repl{
				engine:  sess.Engine,
				catalog: catalog,
				in:      bufio.NewScanner(cmd.InOrStdin()),
				out:     cmd.OutOrStdout(),
			}
			return r.run(ctx)
		},
	}

	cmd.Flags().StringVar(&options.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9100)")
	return cmd
}

func serveMetrics(addr string, registry *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// #region repl

// repl reads one line per prompt. It returns nil on EOF, quit or end.
type repl struct {
	engine  *engine.Engine
	catalog *guidance.Catalog
	in      *bufio.Scanner
	out     io.Writer
}

var errQuit = errors.New("quit")

func (r *repl) readLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	return strings.TrimSpace(r.in.Text()), nil
}

func (r *repl) run(ctx context.Context) error {
	err := r.loop(ctx)
	if errors.Is(err, errQuit) {
		fmt.Fprintln(r.out, "\nSession saved. Run 'laborguide run' to resume.")
		return nil
	}
	return err
}

func (r *repl) loop(ctx context.Context) error {
	cur, err := r.engine.CurrentState(ctx)
	if err != nil {
		return err
	}
	if cur == nil {
		if err := r.assess(ctx); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return errQuit
		}
		action, err := r.engine.NextAction(ctx)
		if err != nil {
			return err
		}
		renderAction(r.out, r.catalog, action)

		line, err := r.readLine("> ")
		if err != nil {
			return err
		}
		done, err := r.handle(ctx, action, line)
		if err != nil {
			var persist *engine.PersistenceError
			if errors.Is(err, errQuit) || errors.As(err, &persist) {
				return err
			}
			fmt.Fprintf(r.out, "  ! %v\n", err)
		}
		if done {
			return nil
		}
	}
}

// handle applies one input line. done reports that the session ended.
func (r *repl) handle(ctx context.Context, action engine.NextAction, line string) (done bool, err error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit", "exit":
		return false, errQuit
	case "end":
		if err := r.engine.EndSession(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Session ended.")
		return true, nil
	case "done":
		if action.Action != engine.ActionEmergency {
			return false, errors.New("no emergency is active")
		}
		return false, r.engine.ClearEmergency(ctx)
	case "next":
		return false, r.advance(ctx, fields[1:])
	}

	if action.Action != engine.ActionAsk {
		return false, fmt.Errorf("unrecognized command %q", line)
	}
	resp, ok := r.resolveAnswer(action.Decision, line)
	if !ok {
		return false, errors.New("answer not understood, pick an option number")
	}
	return false, r.engine.HandleDecisionResponse(ctx, action.Decision, resp)
}

// resolveAnswer accepts an option number, an exact response value, or free
// text matched through intent.
func (r *repl) resolveAnswer(id state.DecisionID, line string) (decision.Response, bool) {
	if n, err := strconv.Atoi(line); err == nil {
		if q, ok := r.catalog.Question(id); ok {
			if o, ok := q.Option(n); ok {
				return o.Value, true
			}
		}
		return "", false
	}
	if resp, err := decision.ParseResponse(id, line); err == nil {
		return resp, true
	}
	return intent.MatchResponse(id, line)
}

func (r *repl) advance(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return r.engine.AdvanceToStage(ctx, state.Stage(args[0]))
	}
	cur, err := r.engine.CurrentState(ctx)
	if err != nil {
		return err
	}
	if cur == nil {
		return engine.ErrNoActiveSession
	}
	next := stage.Next(cur.Stage)
	switch len(next) {
	case 0:
		return fmt.Errorf("%s is the last stage", cur.Stage)
	case 1:
		return r.engine.AdvanceToStage(ctx, next[0])
	}
	return fmt.Errorf("choose a stage: next <%s>", joinStages(next))
}

func joinStages(stages []state.Stage) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return strings.Join(names, "|")
}

// #endregion repl

// #region assessment

func (r *repl) assess(ctx context.Context) error {
	fmt.Fprintln(r.out, "New labor session. Answer four quick questions.")

	var a stage.Assessment
	for {
		line, err := r.readLine("How many months pregnant? (كم شهر؟) ")
		if err != nil {
			return err
		}
		if m, ok := intent.MatchMonths(line); ok {
			a.MonthsPregnant = m
			break
		}
		fmt.Fprintln(r.out, "  ! please give a number of months")
	}

	line, err := r.readLine("How many minutes between contractions? (كم دقيقة بين الانقباضات؟) ")
	if err != nil {
		return err
	}
	a.ContractionMinutes = intent.MatchContractionMinutes(line)

	if a.WaterBroken, err = r.askYesNo("Has the water broken? (هل نزل الماء؟) "); err != nil {
		return err
	}
	if a.UrgeToPush, err = r.askYesNo("Is there a strong urge to push? (هل تشعرين برغبة في الدفع؟) "); err != nil {
		return err
	}

	s, err := r.engine.InitializeSession(ctx, a)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Session %s started in stage %s.\n", s.SessionID, s.Stage)
	return nil
}

func (r *repl) askYesNo(prompt string) (bool, error) {
	for {
		line, err := r.readLine(prompt)
		if err != nil {
			return false, err
		}
		if yes, ok := intent.MatchYesNo(line); ok {
			return yes, nil
		}
		fmt.Fprintln(r.out, "  ! please answer yes or no")
	}
}

// #endregion assessment

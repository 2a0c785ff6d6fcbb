package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jask/cropform/internal/chain"
	"github.com/jask/cropform/internal/forms"
)

type assignment struct {
	key, value string
}

func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		out = append(out, assignment{key: strings.TrimSpace(k), value: v})
	}
	return out, nil
}

func (a *app) selectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "select <form> [key=value ...]",
		Short: "Fill a form without the terminal UI",
		Long: `Applies each key=value in order, waiting for the options each choice
unlocks before the next one. Values are matched against the loaded options
ignoring case; near misses are reported with suggestions.

Example:
  cropform select location state=Karnataka district=Mysore taluk=Hunsur`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assigns, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return a.runSelect(cmd.Context(), cmd.OutOrStdout(), args[0], assigns, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print only the final selections as JSON")
	return cmd
}

// noticeLog collects notices from the loop goroutine.
type noticeLog struct {
	mu      sync.Mutex
	notices []chain.Notice
}

func (l *noticeLog) add(n chain.Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
}

func (l *noticeLog) drain() []chain.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.notices
	l.notices = nil
	return out
}

func (a *app) runSelect(ctx context.Context, out io.Writer, name string, assigns []assignment, asJSON bool) error {
	_, c, err := a.buildChain(name)
	if err != nil {
		return err
	}
	notices := &noticeLog{}
	loop := chain.NewLoop(c, notices.add)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopLoop := context.WithCancel(gctx)
	g.Go(func() error {
		if err := loop.Run(runCtx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer stopLoop()
		return a.drive(runCtx, out, loop, notices, assigns, asJSON)
	})
	return g.Wait()
}

func (a *app) drive(ctx context.Context, out io.Writer, loop *chain.Loop, notices *noticeLog, assigns []assignment, asJSON bool) error {
	failed := make(map[string]chain.Notice)
	settle := func() error {
		if err := loop.Settle(ctx); err != nil {
			return err
		}
		for _, n := range notices.drain() {
			if n.Level == chain.LevelError {
				failed[n.Stage] = n
			}
			if !asJSON {
				fmt.Fprintln(out, n.Message)
			}
		}
		return nil
	}

	if err := loop.Init(ctx); err != nil {
		return err
	}
	if err := settle(); err != nil {
		return err
	}

	for _, as := range assigns {
		var (
			status  chain.Status
			options []chain.Option
			known   bool
		)
		if err := loop.View(ctx, func(c *chain.Chain) {
			_, known = c.Stage(as.key)
			status = c.Status(as.key)
			options = c.Options(as.key)
		}); err != nil {
			return err
		}
		if !known {
			return fmt.Errorf("%w: %q", chain.ErrUnknownStage, as.key)
		}
		switch status {
		case chain.StatusReady:
		case chain.StatusFailed:
			return fmt.Errorf("%s: %s", as.key, failed[as.key].Message)
		default:
			return fmt.Errorf("%s is not available yet: set the fields it depends on first", as.key)
		}

		value := ""
		if as.value != "" {
			v, err := forms.Resolve(as.value, options[1:])
			if err != nil {
				return fmt.Errorf("%s: %w", as.key, err)
			}
			value = v
		}
		a.logger.Debug("applying selection", zap.String("stage", as.key), zap.String("value", value))
		if err := loop.Select(ctx, as.key, value); err != nil {
			return err
		}
		if err := settle(); err != nil {
			return err
		}
	}

	var (
		stages   []chain.Stage
		values   chain.SelectionState
		opts     = make(map[string][]chain.Option)
		statuses = make(map[string]chain.Status)
		invalid  error
	)
	if err := loop.View(ctx, func(c *chain.Chain) {
		stages = c.Stages()
		values = c.State()
		for _, st := range stages {
			opts[st.Key] = c.Options(st.Key)
			statuses[st.Key] = c.Status(st.Key)
		}
		invalid = c.Validate()
	}); err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	}
	for _, st := range stages {
		printStage(out, st, values[st.Key], opts[st.Key], statuses[st.Key])
	}
	if invalid != nil {
		fmt.Fprintf(out, "\nincomplete: %v\n", invalid)
	}
	return nil
}

func printStage(out io.Writer, st chain.Stage, value string, opts []chain.Option, status chain.Status) {
	shown := value
	if shown == "" {
		shown = st.Placeholder().Label
	}
	fmt.Fprintf(out, "%s: %s\n", st.DisplayLabel(), shown)
	switch status {
	case chain.StatusReady:
		labels := make([]string, 0, len(opts))
		for _, o := range opts[1:] {
			labels = append(labels, o.Label)
		}
		if len(labels) > 0 {
			fmt.Fprintf(out, "  options: %s\n", strings.Join(labels, ", "))
		}
	case chain.StatusFailed:
		fmt.Fprintln(out, "  options: unavailable")
	default:
		fmt.Fprintln(out, "  options: disabled")
	}
}

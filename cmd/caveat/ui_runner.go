package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"caveat/internal/runner"
	"caveat/internal/ui"
)

type runOutcome struct {
	result runner.Result
	err    error
}

// runWithUI executes nodes while a progress view consumes the runner events.
func runWithUI(ctx context.Context, out io.Writer, title string, cfg runner.Config, nodes []runner.Node) (runner.Result, error) {
	events := make(chan runner.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	ids := make([]string, len(nodes))
	for i := range nodes {
		ids[i] = nodes[i].ID
	}

	go func() {
		cfg.Progress = runner.ChannelSink{Ch: events}
		res, err := runner.New(cfg).Run(ctx, nodes)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, ids, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))
	_, uiErr := program.Run()
	if uiErr != nil {
		// дренируем события, иначе раннер заблокируется на полном канале
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

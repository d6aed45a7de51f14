package review

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/habitd/internal/engine"
)

// Run fetches pending suggestions, drives the review TUI, and applies
// the recorded decisions. It returns how many responses were applied.
func Run(ctx context.Context, eng *engine.Engine) (int, error) {
	pending, err := eng.ActiveSuggestions(ctx, 0)
	if err != nil {
		return 0, err
	}

	p := tea.NewProgram(NewModel(pending))
	final, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("review session: %w", err)
	}
	model, ok := final.(Model)
	if !ok {
		return 0, fmt.Errorf("unexpected model type %T", final)
	}

	applied := 0
	for _, d := range model.Decisions() {
		if _, err := eng.RespondToSuggestion(ctx, d.SuggestionID, d.Response, nil); err != nil {
			return applied, fmt.Errorf("apply decision for %s: %w", d.SuggestionID, err)
		}
		applied++
	}
	return applied, nil
}

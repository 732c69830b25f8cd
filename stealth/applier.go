package stealth

import (
	"agent-browser/engine"
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrAlreadyAttached is returned when a catalogue is attached to a context
// that already carries it.
var ErrAlreadyAttached = errors.New("stealth catalogue already attached to context")

// Attach registers every catalogue script on bctx as an init script, in
// catalogue order. It returns only after each registration was acknowledged,
// so pages created afterwards run the scripts before any document script.
func Attach(ctx context.Context, bctx engine.Context, catalogue *Catalogue) error {
	if catalogue == nil || catalogue.Len() == 0 {
		return nil
	}

	registered := bctx.InitScripts()
	for _, s := range catalogue.scripts {
		if slices.Contains(registered, s.source) {
			return fmt.Errorf("context %s: %w", bctx.ID(), ErrAlreadyAttached)
		}
	}

	for _, s := range catalogue.scripts {
		if err := bctx.AddInitScript(ctx, s.source); err != nil {
			return fmt.Errorf("failed to attach %s script: %w", s.purpose, err)
		}
	}
	return nil
}

// Package stage implements the registered processing stages of the three
// pipelines: code explanation, problem solving and open conversation.
// Provider-backed stages share the retry/fallback policy in base.go;
// transform stages run purely on the record.
package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avilaj/rassist/core"
	"github.com/avilaj/rassist/provider"
)

// base carries the identity shared by all stages.
type base struct {
	name  string
	label string
}

// Name implements core.Stage.
func (b base) Name() string { return b.name }

// Label implements core.Stage.
func (b base) Label() string { return b.label }

// complete calls the provider with the shared failure policy: an
// unconfigured provider substitutes the fallback and flags the record as
// demo output; a transient error is recorded as a warning and retried once
// before halting the stage; an empty completion substitutes the fallback
// with a warning instead of failing.
func complete(
	ctx context.Context,
	p provider.Provider,
	rec *core.Record,
	stage string,
	req provider.Request,
	fallback func() string,
) (string, error) {
	out, err := p.Complete(ctx, req)
	if err != nil && !errors.Is(err, provider.ErrUnconfigured) {
		rec.AddWarning(stage, "provider error, retrying once: %v", err)
		out, err = p.Complete(ctx, req)
	}
	if err != nil {
		if errors.Is(err, provider.ErrUnconfigured) {
			rec.Demo = true
			return fallback(), nil
		}
		rec.AddError(stage, "provider failed after retry: %v", err)
		return "", fmt.Errorf("stage %s: provider failed after retry: %w", stage, err)
	}
	if strings.TrimSpace(out) == "" {
		rec.AddWarning(stage, "provider returned an empty completion, substituting default")
		return fallback(), nil
	}
	return out, nil
}

// transcript renders recent conversation history as plain text for prompt
// context. The last max entries are included, chronological order preserved.
func transcript(history []core.Message, max int) string {
	if len(history) > max {
		history = history[len(history)-max:]
	}
	var sb strings.Builder
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	return sb.String()
}

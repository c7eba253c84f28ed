package stage

import (
	"context"
	"slices"
	"strings"

	"github.com/avilaj/rassist/core"
	"github.com/avilaj/rassist/demo"
	"github.com/avilaj/rassist/prompt"
	"github.com/avilaj/rassist/provider"
)

// historyWindow caps how many prior messages are included in the prompt.
const historyWindow = 10

// ContextOutput is the derived result of the enrich_context stage.
type ContextOutput struct {
	ConversationLength int      `json:"conversation_length"`
	Topics             []string `json:"topics,omitempty"`
}

// Converse is the first stage of the talk pipeline. It answers the user's
// message with recent conversation history as context.
type Converse struct {
	base
	provider provider.Provider
}

// NewConverse constructs the conversation stage.
func NewConverse(p provider.Provider) *Converse {
	return &Converse{
		base:     base{name: core.StageConverse, label: "Thinking about your message..."},
		provider: p,
	}
}

// Process implements core.Stage.
func (s *Converse) Process(ctx context.Context, rec *core.Record) error {
	rendered, err := prompt.Render("converse", struct{ Message string }{Message: rec.UserInput})
	if err != nil {
		return err
	}

	system := prompt.SystemConversation
	if ctxText := transcript(rec.History, historyWindow); ctxText != "" {
		system += "\n\nRecent conversation:\n" + ctxText
	}

	out, err := complete(ctx, s.provider, rec, s.name, provider.Request{
		System:      system,
		Prompt:      rendered,
		Temperature: 0.8,
	}, func() string { return demo.Reply(rec.UserInput) })
	if err != nil {
		return err
	}

	if err := rec.SetResult(s.name, out); err != nil {
		return err
	}
	rec.MarkProcessed(s.name)
	return nil
}

// EnrichContext is a transform stage: it derives lightweight conversation
// metadata from the exchange. History itself stays read-only; only the
// history store appends entries, after finalize succeeds.
type EnrichContext struct {
	base
}

// NewEnrichContext constructs the context enrichment stage.
func NewEnrichContext() *EnrichContext {
	return &EnrichContext{
		base: base{name: core.StageEnrichContext, label: "Enriching conversation context..."},
	}
}

// Process implements core.Stage.
func (s *EnrichContext) Process(_ context.Context, rec *core.Record) error {
	if _, ok := rec.Result(core.StageConverse); !ok {
		return &core.InvariantError{Stage: s.name, Reason: "converse wrote no result"}
	}

	out := ContextOutput{
		// The pending exchange adds two entries once persisted.
		ConversationLength: len(rec.History) + 2,
		Topics:             detectTopics(rec.UserInput),
	}
	if err := rec.SetResult(s.name, out); err != nil {
		return err
	}
	rec.MarkProcessed(s.name)
	return nil
}

// topicKeywords is scanned in order so detected topics come out
// deterministic for a given message.
var topicKeywords = []struct {
	keyword string
	topic   string
}{
	{"ggplot", "visualization"},
	{"plot", "visualization"},
	{"dplyr", "data-manipulation"},
	{"mean", "statistics"},
	{"median", "statistics"},
	{"model", "modeling"},
	{"regress", "modeling"},
}

// detectTopics performs a keyword scan over the message; topics only feed
// UI hints.
func detectTopics(message string) []string {
	lower := strings.ToLower(message)
	var topics []string
	for _, kw := range topicKeywords {
		if strings.Contains(lower, kw.keyword) && !slices.Contains(topics, kw.topic) {
			topics = append(topics, kw.topic)
		}
	}
	return topics
}

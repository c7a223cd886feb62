// Package chat implements the conversational retrieval orchestration
// pipeline: prompt construction, turn memory, retrieval invocation,
// streaming generation and source attribution.
//
// An Assistant carries the shared immutable dependencies; a Conversation
// pairs the Assistant with one session's turn memory. Each chat session
// owns exactly one Conversation, handed to it by the transport layer via
// dependency injection — nothing here looks up "the current session" in
// ambient state.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/policyhub/askhr/internal/memory"
	"github.com/policyhub/askhr/internal/prompt"
	"github.com/policyhub/askhr/internal/retrieval"
)

// fallbackResponseMessage is returned when the model produces an empty
// response.
const fallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// snippetSeparator joins snippet texts into the context slot value.
const snippetSeparator = "\n\n"

// ErrEmptyQuestion indicates a turn was started without a question.
var ErrEmptyQuestion = errors.New("empty question")

// TokenCallback receives user-facing answer tokens as they stream in.
// Return an error to abort the stream.
type TokenCallback func(ctx context.Context, token string) error

// Answer is the assembled result of one completed turn.
// Immutable once returned.
type Answer struct {
	// Text is the generated answer, with the source block appended when
	// attribution is enabled.
	Text string

	// Sources are the snippets retrieved for this turn, in rank order.
	// Empty when retrieval returned nothing or was degraded.
	Sources []retrieval.Snippet
}

// Config contains all required parameters for the Assistant.
type Config struct {
	Genkit    *genkit.Genkit
	Retriever ai.Retriever
	Logger    *slog.Logger

	// ModelName is the provider-qualified model (e.g. "googleai/gemini-2.5-pro").
	ModelName string

	// ShowSources appends retrieved source excerpts to answers.
	ShowSources bool

	// FinalAnswerMarker overrides the stream marker separating preamble
	// from the user-facing answer ("" = use FinalAnswerMarker).
	FinalAnswerMarker string

	// RateLimiter proactively limits LLM calls (nil = use default).
	RateLimiter *rate.Limiter
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Assistant holds the shared, immutable dependencies of the pipeline.
// Safe for concurrent use; per-session state lives in Conversation.
type Assistant struct {
	g           *genkit.Genkit
	retriever   ai.Retriever
	template    *prompt.Template
	logger      *slog.Logger
	modelName   string
	showSources bool
	marker      string
	limiter     *rate.Limiter
}

// New creates an Assistant with required configuration.
func New(cfg Config) (*Assistant, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Default: 10 requests/sec sustained, burst of 30.
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	marker := cfg.FinalAnswerMarker
	if marker == "" {
		marker = FinalAnswerMarker
	}

	a := &Assistant{
		g:           cfg.Genkit,
		retriever:   cfg.Retriever,
		template:    prompt.HRAssistant(),
		logger:      cfg.Logger,
		modelName:   cfg.ModelName,
		showSources: cfg.ShowSources,
		marker:      marker,
		limiter:     rl,
	}

	a.logger.Info("assistant initialized",
		"model", a.modelName,
		"show_sources", a.showSources)

	return a, nil
}

// NewConversation creates the per-session orchestrator with its own empty
// turn memory.
func (a *Assistant) NewConversation() *Conversation {
	return &Conversation{
		assistant: a,
		memory:    memory.NewBuffer(),
	}
}

// Conversation is one session's orchestrator. It owns the session's turn
// memory and nothing else; all other state is the shared Assistant.
//
// Turns are serialized: a second HandleTurn call blocks until the first
// completes, so the transcript read by turn N reflects exactly turns
// 1..N-1.
type Conversation struct {
	mu        sync.Mutex
	assistant *Assistant
	memory    *memory.Buffer
}

// Memory exposes the conversation's turn memory.
func (c *Conversation) Memory() *memory.Buffer {
	return c.memory
}

// HandleTurn runs one full request/response cycle: retrieve snippets for
// the question, render the prompt with the pre-turn transcript, generate
// the answer (streaming through onToken when non-nil), record the
// completed turn and assemble attribution.
//
// Retrieval failures degrade to an empty context; generation failures
// abort the turn and leave memory untouched.
func (c *Conversation) HandleTurn(ctx context.Context, question string, onToken TokenCallback) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.assistant
	transcript := c.memory.Transcript()

	// The raw question is the retrieval query; condensation of follow-ups
	// is left to the generation call, which sees the full transcript.
	snippets := a.retrieve(ctx, question)

	contextText := joinSnippets(snippets)

	promptText, err := a.template.Render(map[string]string{
		prompt.SlotContext:     contextText,
		prompt.SlotChatHistory: transcript,
		prompt.SlotQuestion:    question,
	})
	if err != nil {
		return nil, err
	}

	text, err := a.generate(ctx, promptText, onToken)
	if err != nil {
		return nil, err
	}

	c.memory.Append(question, text)

	if a.showSources {
		text = attachSources(text, snippets)
	}

	a.logger.Debug("turn completed",
		"question_length", len(question),
		"snippets", len(snippets),
		"answer_length", len(text))

	return &Answer{Text: text, Sources: snippets}, nil
}

// retrieve queries the search backend. Failures are absorbed: the turn
// proceeds with an empty snippet set so the model can still attempt a
// general answer.
func (a *Assistant) retrieve(ctx context.Context, query string) []retrieval.Snippet {
	resp, err := a.retriever.Retrieve(ctx, &ai.RetrieverRequest{
		Query: ai.DocumentFromText(query, nil),
	})
	if err != nil {
		a.logger.Warn("retrieval unavailable, continuing with empty context", "error", err)
		return nil
	}
	return retrieval.Snippets(resp.Documents)
}

// joinSnippets concatenates snippet texts, in retrieval order, into the
// context slot value. Empty input yields the empty string.
func joinSnippets(snippets []retrieval.Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	texts := make([]string, len(snippets))
	for i, s := range snippets {
		texts[i] = s.Text
	}
	return strings.Join(texts, snippetSeparator)
}

// noSourcesNotice is appended when attribution is on but nothing was
// retrieved.
const noSourcesNotice = "\nNo sources found"

// attachSources appends the source block to an answer: each snippet's
// text exactly once, in retrieval order.
func attachSources(text string, snippets []retrieval.Snippet) string {
	if len(snippets) == 0 {
		return text + noSourcesNotice
	}

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\n---\n")
	for _, s := range snippets {
		sb.WriteString("Source: ")
		sb.WriteString(s.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/policyhub/askhr/internal/log"
	"github.com/policyhub/askhr/internal/retrieval"
	"github.com/policyhub/askhr/internal/testutil"
)

// newAssistant wires a fresh Genkit instance, the mock model and the given
// retriever into an Assistant.
func newAssistant(t *testing.T, llm *testutil.MockLLM, r ai.Retriever, showSources bool) *Assistant {
	t.Helper()

	g := genkit.Init(context.Background())
	llm.RegisterModel(g)
	if r == nil {
		r = testutil.DefineStaticRetriever(g, "empty-retriever", nil)
	}

	a, err := New(Config{
		Genkit:      g,
		Retriever:   r,
		Logger:      log.NewNop(),
		ModelName:   testutil.MockModelName,
		ShowSources: showSources,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

// wfhSetup builds the canonical scenario: one WFH snippet in the index,
// a model that answers the WFH question.
func wfhSetup(t *testing.T, showSources bool) (*Assistant, *testutil.MockLLM) {
	t.Helper()

	llm := testutil.NewMockLLM("fallback answer")
	llm.AddResponse("work from home", "You may work from home 3 days per week.")

	g := genkit.Init(context.Background())
	llm.RegisterModel(g)
	r := testutil.DefineStaticRetriever(g, "policy-retriever", []retrieval.Snippet{
		{Text: "WFH allowed 3 days/week", Metadata: map[string]any{}},
	})

	a, err := New(Config{
		Genkit:      g,
		Retriever:   r,
		Logger:      log.NewNop(),
		ModelName:   testutil.MockModelName,
		ShowSources: showSources,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, llm
}

func TestConfig_validate(t *testing.T) {
	t.Parallel()

	stubG := new(genkit.Genkit)
	stubR := testutil.DefineStaticRetriever(genkit.Init(context.Background()), "stub", nil)
	stubL := log.NewNop()

	tests := []struct {
		name        string
		cfg         Config
		errContains string
	}{
		{
			name:        "nil genkit",
			cfg:         Config{},
			errContains: "genkit instance is required",
		},
		{
			name:        "nil retriever",
			cfg:         Config{Genkit: stubG},
			errContains: "retriever is required",
		},
		{
			name:        "nil logger",
			cfg:         Config{Genkit: stubG, Retriever: stubR},
			errContains: "logger is required",
		},
		{
			name:        "empty model name",
			cfg:         Config{Genkit: stubG, Retriever: stubR, Logger: stubL},
			errContains: "model name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if err == nil {
				t.Fatal("New() = nil error, want failure")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %q, want substring %q", err, tt.errContains)
			}
		})
	}
}

func TestHandleTurn_AttributionEnabled(t *testing.T) {
	a, _ := wfhSetup(t, true)
	conv := a.NewConversation()

	answer, err := conv.HandleTurn(context.Background(), "What is the work from home policy?", nil)
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	want := "You may work from home 3 days per week.\n\n---\nSource: WFH allowed 3 days/week\n\n"
	if answer.Text != want {
		t.Errorf("Answer.Text = %q, want %q", answer.Text, want)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Text != "WFH allowed 3 days/week" {
		t.Errorf("Answer.Sources = %+v", answer.Sources)
	}
}

func TestHandleTurn_AttributionDisabled(t *testing.T) {
	a, _ := wfhSetup(t, false)
	conv := a.NewConversation()

	answer, err := conv.HandleTurn(context.Background(), "What is the work from home policy?", nil)
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	if answer.Text != "You may work from home 3 days per week." {
		t.Errorf("Answer.Text = %q, want raw generation output", answer.Text)
	}
	// Sources still travel on the Answer for callers that want them.
	if len(answer.Sources) != 1 {
		t.Errorf("len(Sources) = %d, want 1", len(answer.Sources))
	}
}

func TestHandleTurn_AttributionNoSnippets(t *testing.T) {
	llm := testutil.NewMockLLM("General guidance: ask HR.")
	a := newAssistant(t, llm, nil, true)
	conv := a.NewConversation()

	answer, err := conv.HandleTurn(context.Background(), "Something obscure?", nil)
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	want := "General guidance: ask HR.\nNo sources found"
	if answer.Text != want {
		t.Errorf("Answer.Text = %q, want %q", answer.Text, want)
	}
}

func TestHandleTurn_SecondTurnSeesFirstVerbatim(t *testing.T) {
	a, llm := wfhSetup(t, true)
	conv := a.NewConversation()

	if _, err := conv.HandleTurn(context.Background(), "What is the work from home policy?", nil); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if _, err := conv.HandleTurn(context.Background(), "What about Fridays?", nil); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	promptText := llm.LastPrompt()
	wantHistory := "Human: What is the work from home policy?\n" +
		"Assistant: You may work from home 3 days per week."
	if !strings.Contains(promptText, wantHistory) {
		t.Errorf("second-turn prompt missing first exchange:\n%s", promptText)
	}
	if !strings.Contains(promptText, "Question: What about Fridays?") {
		t.Errorf("second-turn prompt missing current question:\n%s", promptText)
	}
}

func TestHandleTurn_DegradedRetrieval(t *testing.T) {
	llm := testutil.NewMockLLM("Here is what I know in general.")

	g := genkit.Init(context.Background())
	llm.RegisterModel(g)
	r := testutil.DefineFailingRetriever(g, "broken-retriever",
		fmt.Errorf("%w: backend down", retrieval.ErrUnavailable))

	a, err := New(Config{
		Genkit:      g,
		Retriever:   r,
		Logger:      log.NewNop(),
		ModelName:   testutil.MockModelName,
		ShowSources: true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	conv := a.NewConversation()

	answer, err := conv.HandleTurn(context.Background(), "What is the leave policy?", nil)
	if err != nil {
		t.Fatalf("HandleTurn() must not propagate retrieval failure, got %v", err)
	}

	if !strings.HasSuffix(answer.Text, "No sources found") {
		t.Errorf("degraded answer missing no-sources notice: %q", answer.Text)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("Sources = %+v, want none", answer.Sources)
	}
	// The context slot was rendered empty, not dropped.
	if !strings.Contains(llm.LastPrompt(), "Context: \n") {
		t.Errorf("prompt context slot not empty:\n%s", llm.LastPrompt())
	}
}

func TestHandleTurn_GenerationFailureLeavesMemoryUntouched(t *testing.T) {
	a, llm := wfhSetup(t, true)
	conv := a.NewConversation()

	llm.FailWith(errors.New("backend exploded"))

	_, err := conv.HandleTurn(context.Background(), "What is the work from home policy?", nil)
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("HandleTurn() = %v, want ErrGenerationUnavailable", err)
	}

	if conv.Memory().Len() != 0 {
		t.Errorf("memory recorded a failed turn: %d turns", conv.Memory().Len())
	}
	if conv.Memory().Transcript() != "" {
		t.Errorf("transcript not empty after failed turn: %q", conv.Memory().Transcript())
	}
}

func TestHandleTurn_GenerationTimeout(t *testing.T) {
	a, llm := wfhSetup(t, true)
	conv := a.NewConversation()

	llm.FailWith(fmt.Errorf("calling model: %w", context.DeadlineExceeded))

	_, err := conv.HandleTurn(context.Background(), "What is the work from home policy?", nil)
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Errorf("HandleTurn() = %v, want ErrGenerationTimeout", err)
	}
}

func TestHandleTurn_TranscriptExcludesFailedTurns(t *testing.T) {
	llm := testutil.NewMockLLM("answer")
	a := newAssistant(t, llm, nil, false)
	conv := a.NewConversation()

	ctx := context.Background()
	if _, err := conv.HandleTurn(ctx, "first?", nil); err != nil {
		t.Fatalf("turn 1: %v", err)
	}

	llm.FailWith(errors.New("flaky"))
	if _, err := conv.HandleTurn(ctx, "second?", nil); err == nil {
		t.Fatal("turn 2 should have failed")
	}

	llm.FailWith(nil)
	if _, err := conv.HandleTurn(ctx, "third?", nil); err != nil {
		t.Fatalf("turn 3: %v", err)
	}

	transcript := conv.Memory().Transcript()
	if strings.Contains(transcript, "second?") {
		t.Errorf("failed turn leaked into transcript: %q", transcript)
	}
	want := "Human: first?\nAssistant: answer\nHuman: third?\nAssistant: answer"
	if transcript != want {
		t.Errorf("transcript = %q, want %q", transcript, want)
	}
}

func TestHandleTurn_EmptyQuestion(t *testing.T) {
	a, _ := wfhSetup(t, true)
	conv := a.NewConversation()

	if _, err := conv.HandleTurn(context.Background(), "   ", nil); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("HandleTurn() = %v, want ErrEmptyQuestion", err)
	}
	if conv.Memory().Len() != 0 {
		t.Error("empty question recorded a turn")
	}
}

func TestHandleTurn_StreamingForwardsOnlyFinalAnswer(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddResponse("work from home",
		"Checking the remote work policy first. FINAL ANSWER: You may work from home 3 days per week.")
	llm.SetChunkSize(7)

	a := newAssistant(t, llm, nil, false)
	conv := a.NewConversation()

	var streamed strings.Builder
	answer, err := conv.HandleTurn(context.Background(), "What is the work from home policy?",
		func(_ context.Context, token string) error {
			streamed.WriteString(token)
			return nil
		})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	if got := streamed.String(); got != "You may work from home 3 days per week." {
		t.Errorf("streamed output = %q, want only post-marker text", got)
	}
	// The recorded answer is the complete model output.
	if !strings.Contains(answer.Text, "FINAL ANSWER") {
		t.Errorf("Answer.Text lost model output: %q", answer.Text)
	}
}

func TestHandleTurn_StreamingEquivalence(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddResponse("leave", "FINAL ANSWER: Annual leave is 24 days, sick leave is 10 days.")
	llm.SetChunkSize(5)

	a := newAssistant(t, llm, nil, false)
	conv := a.NewConversation()

	var streamed strings.Builder
	answer, err := conv.HandleTurn(context.Background(), "Types of leaves and their counts?",
		func(_ context.Context, token string) error {
			streamed.WriteString(token)
			return nil
		})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	want := strings.TrimPrefix(answer.Text, "FINAL ANSWER: ")
	if streamed.String() != want {
		t.Errorf("streamed = %q, want %q", streamed.String(), want)
	}
}

func TestHandleTurn_StreamCallbackAbort(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddResponse("policy", "FINAL ANSWER: a long answer that streams in several chunks")
	llm.SetChunkSize(4)

	a := newAssistant(t, llm, nil, false)
	conv := a.NewConversation()

	abort := errors.New("client went away")
	_, err := conv.HandleTurn(context.Background(), "Any policy question",
		func(_ context.Context, _ string) error {
			return abort
		})
	if err == nil {
		t.Fatal("HandleTurn() = nil error, want aborted stream")
	}
	if conv.Memory().Len() != 0 {
		t.Error("aborted turn was recorded in memory")
	}
}

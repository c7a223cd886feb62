package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/policyhub/askhr/internal/chat"
	"github.com/policyhub/askhr/internal/config"
	"github.com/policyhub/askhr/internal/log"
	"github.com/policyhub/askhr/internal/observability"
	"github.com/policyhub/askhr/internal/retrieval"
	"github.com/policyhub/askhr/internal/session"
)

// RetrieverName is the name the policy search retriever registers under.
const RetrieverName = "vertexai/hr-policies"

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	a := &App{
		Config: cfg,
		Logger: provideLogger(cfg),
	}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				a.Logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first: Genkit's TracerProvider must be configured before
	// the first flow runs.
	a.traceShutdown = observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
	}, a.Logger)

	g, err := provideGenkit(ctx, cfg, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	a.Retriever = provideRetriever(g, cfg, a.Logger)

	assistant, err := chat.New(chat.Config{
		Genkit:      g,
		Retriever:   a.Retriever,
		Logger:      a.Logger,
		ModelName:   modelName(cfg.ModelName),
		ShowSources: cfg.ShowSources,
	})
	if err != nil {
		return nil, fmt.Errorf("creating assistant: %w", err)
	}
	a.Assistant = assistant

	a.Sessions = session.NewManager(assistant)

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideLogger builds the application logger from config.
func provideLogger(cfg *config.Config) log.Logger {
	return log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
}

// provideGenkit initializes Genkit with the Gemini plugin. The plugin
// reads GEMINI_API_KEY from the environment; config validation has
// already checked its presence.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}
	logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	return g, nil
}

// provideRetriever wires the Vertex AI Search client in as a Genkit
// retriever.
func provideRetriever(g *genkit.Genkit, cfg *config.Config, logger log.Logger) ai.Retriever {
	client := retrieval.NewVertexClient(retrieval.VertexConfig{
		ProjectID:       cfg.ProjectID,
		Location:        cfg.DataStoreLocation,
		DataStoreID:     cfg.DataStoreID,
		MaxDocuments:    cfg.MaxDocuments,
		MaxSegmentCount: cfg.MaxExtractiveSegments,
		MaxAnswerCount:  cfg.MaxExtractiveAnswers,
	}, logger)

	return retrieval.Define(g, RetrieverName, client)
}

// modelName qualifies a bare Gemini model name with the provider prefix
// Genkit expects. Already-qualified names pass through.
func modelName(name string) string {
	const prefix = "googleai/"
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}

// Package app provides application initialization and dependency injection.
//
// App is the container that wires all components: Genkit, the Vertex AI
// Search retriever, the chat assistant and the session registry. Handlers
// and commands receive their dependencies from here; nothing reaches for
// globals.
package app

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/policyhub/askhr/internal/chat"
	"github.com/policyhub/askhr/internal/config"
	"github.com/policyhub/askhr/internal/log"
	"github.com/policyhub/askhr/internal/session"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit    *genkit.Genkit
	Retriever ai.Retriever
	Assistant *chat.Assistant
	Sessions  *session.Manager

	cancel        context.CancelFunc
	traceShutdown func(context.Context) error
}

// Close releases application resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.traceShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.traceShutdown(ctx); err != nil && a.Logger != nil {
			a.Logger.Warn("shutting down trace export", "error", err)
		}
	}
	return nil
}

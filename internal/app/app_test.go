package app

import (
	"context"
	"testing"

	"github.com/policyhub/askhr/internal/config"
	"github.com/policyhub/askhr/internal/log"
)

func TestApp_Close(t *testing.T) {
	tests := []struct {
		name     string
		setupApp func() *App
	}{
		{
			name: "close with cancel function",
			setupApp: func() *App {
				_, cancel := context.WithCancel(context.Background())
				return &App{Logger: log.NewNop(), cancel: cancel}
			},
		},
		{
			name:     "close minimal app",
			setupApp: func() *App { return &App{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.setupApp().Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestSetup_NilConfig(t *testing.T) {
	if _, err := Setup(context.Background(), nil); err == nil {
		t.Error("Setup(nil config) = nil error, want failure")
	}
}

func TestModelName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"gemini-2.5-pro", "googleai/gemini-2.5-pro"},
		{"googleai/gemini-2.5-pro", "googleai/gemini-2.5-pro"},
		{"gemini-2.5-flash", "googleai/gemini-2.5-flash"},
	}
	for _, tt := range tests {
		if got := modelName(tt.in); got != tt.want {
			t.Errorf("modelName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProvideLogger(t *testing.T) {
	logger := provideLogger(&config.Config{LogLevel: "debug"})
	if logger == nil {
		t.Fatal("provideLogger returned nil")
	}
}

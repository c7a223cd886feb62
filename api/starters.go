package api

import (
	"net/http"

	"github.com/policyhub/askhr/internal/log"
)

// Starter is a canned question shown to users opening a fresh conversation.
type Starter struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

// starters is the fixed set of HR policy starter questions.
var starters = []Starter{
	{Label: "Leave policy", Message: "types of leaves and their counts?"},
	{Label: "Mediclaim policy", Message: "give details about the Mediclaim policy with details"},
	{Label: "WFH Policy", Message: "What is the work from home policy?"},
	{Label: "OPD Expenses", Message: "OPD Expenses"},
}

// StarterHandler serves the starter question list.
type StarterHandler struct {
	logger log.Logger
}

// NewStarterHandler creates a new starter handler.
func NewStarterHandler(logger log.Logger) *StarterHandler {
	return &StarterHandler{logger: logger}
}

// RegisterRoutes registers starter routes on the given mux.
func (h *StarterHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/starters", h.list)
}

func (h *StarterHandler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"starters": starters})
}

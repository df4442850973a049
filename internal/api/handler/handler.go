package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/convert-be/internal/convert/capability"
	"github.com/cuongbtq/convert-be/internal/convert/orchestrator"
	"github.com/cuongbtq/convert-be/internal/history"
)

// Prober reports current backend availability. Satisfied by
// *capability.Prober.
type Prober interface {
	Probe(ctx context.Context) capability.Set
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger         *slog.Logger
	Orchestrator   *orchestrator.Orchestrator
	Prober         Prober
	History        *history.Store
	MaxUploadBytes int64
}

// ConvertHandler handles conversion HTTP requests
type ConvertHandler struct {
	logger         *slog.Logger
	orchestrator   *orchestrator.Orchestrator
	prober         Prober
	history        *history.Store
	maxUploadBytes int64
}

// NewConvertHandler creates a new ConvertHandler instance
func NewConvertHandler(deps *Dependencies) *ConvertHandler {
	return &ConvertHandler{
		logger:         deps.Logger,
		orchestrator:   deps.Orchestrator,
		prober:         deps.Prober,
		history:        deps.History,
		maxUploadBytes: deps.MaxUploadBytes,
	}
}

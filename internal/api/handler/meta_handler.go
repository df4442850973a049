package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/convert-be/internal/convert/formats"
)

// Health handles GET /health
// Capabilities are probed fresh on every call so the report reflects the
// current environment, not the one the process started in.
func (h *ConvertHandler) Health(c *gin.Context) {
	caps := h.prober.Probe(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"capabilities": caps,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Capabilities handles GET /capabilities
func (h *ConvertHandler) Capabilities(c *gin.Context) {
	c.JSON(http.StatusOK, h.prober.Probe(c.Request.Context()))
}

// Formats handles GET /formats
// Returns the full capability-gated support matrix.
func (h *ConvertHandler) Formats(c *gin.Context) {
	caps := h.prober.Probe(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"formats": formats.Matrix(caps),
	})
}

// FormatsForInput handles GET /formats/:inputFormat
func (h *ConvertHandler) FormatsForInput(c *gin.Context) {
	input := strings.ToLower(strings.TrimPrefix(c.Param("inputFormat"), "."))
	caps := h.prober.Probe(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"input":   input,
		"targets": formats.SupportedTargets(input, caps),
	})
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/convert-be/internal/api/dto"
	"github.com/cuongbtq/convert-be/internal/history"
)

// ListConversions handles GET /api/v1/conversions
// Lists finished conversions with optional filtering and keyset pagination
func (h *ConvertHandler) ListConversions(c *gin.Context) {
	var req dto.ListConversionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Details: "invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeHistoryCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Details: "invalid cursor",
		})
		return
	}

	filter := history.Filter{
		Status:       req.Status,
		Category:     req.Category,
		TargetFormat: req.TargetFormat,
		PageSize:     req.PageSize,
		Cursor:       cursor,
	}

	records, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list conversions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "INTERNAL_ERROR",
			Details: "failed to list conversions",
		})
		return
	}

	hasMore := len(records) > req.PageSize
	if hasMore {
		records = records[:req.PageSize]
	}

	conversions := make([]dto.ConversionDTO, len(records))
	for i, rec := range records {
		conversions[i] = toConversionDTO(&rec)
	}

	var nextCursor string
	if hasMore {
		last := records[len(records)-1]
		nextCursor = EncodeHistoryCursor(&history.Cursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListConversionsResponse{
		Conversions: conversions,
		NextCursor:  nextCursor,
	})
}

// GetConversion handles GET /api/v1/conversions/:job_id
func (h *ConvertHandler) GetConversion(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Details: "job_id must be a valid UUID",
		})
		return
	}

	rec, err := h.history.GetByJobID(c.Request.Context(), jobID)
	if errors.Is(err, history.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "NOT_FOUND",
			Details: "no conversion with that job_id",
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get conversion", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "INTERNAL_ERROR",
			Details: "failed to get conversion",
		})
		return
	}

	c.JSON(http.StatusOK, toConversionDTO(rec))
}

func toConversionDTO(rec *history.Record) dto.ConversionDTO {
	return dto.ConversionDTO{
		JobID:        rec.JobID,
		SourceName:   rec.SourceName,
		SourceFormat: rec.SourceFormat,
		TargetFormat: rec.TargetFormat,
		Category:     rec.Category,
		Status:       rec.Status,
		FailureKind:  rec.FailureKind,
		Detail:       rec.Detail,
		DurationMs:   rec.DurationMs,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}
}

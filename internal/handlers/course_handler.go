package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/middleware"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
	"github.com/x1syne/ai-study-agent-sub001/internal/utils"
)

// CourseGenerator is the pipeline the course endpoints drive.
type CourseGenerator interface {
	Generate(ctx context.Context, topic, courseName string, useCache bool) (*models.GenerationResult, error)
	Invalidate(ctx context.Context, topic, courseName string) ([]string, error)
}

type CourseHandler struct {
	generator CourseGenerator
	logger    *zap.Logger
}

func NewCourseHandler(generator CourseGenerator, logger *zap.Logger) *CourseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseHandler{
		generator: generator,
		logger:    logger,
	}
}

func (h *CourseHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.GenerateCourseRequest](r)
	req.RequestID = ensureRequestID(req.RequestID)

	result, err := h.generator.Generate(r.Context(), req.Query, req.CourseName, req.CacheEnabled())
	if err != nil {
		h.logger.Error("Course generation failed",
			zap.Error(err),
			zap.String("request_id", req.RequestID),
			zap.String("topic", utils.Truncate(req.Query, 80)))

		if errors.Is(err, context.DeadlineExceeded) {
			utils.Fail(w, http.StatusGatewayTimeout, "request_timeout", "Course generation timed out")
			return
		}
		if errors.Is(err, context.Canceled) {
			utils.Fail(w, http.StatusServiceUnavailable, "request_cancelled", "Course generation was cancelled")
			return
		}
		utils.Fail(w, http.StatusInternalServerError, "generation_error", "Failed to generate course")
		return
	}

	h.logger.Info("Course generated",
		zap.String("request_id", req.RequestID),
		zap.String("topic", utils.Truncate(req.Query, 80)),
		zap.Bool("from_cache", result.Metadata.FromCache),
		zap.Int64("total_time_ms", result.Metadata.TotalTimeMs))

	utils.Success(w, http.StatusOK, result)
}

func (h *CourseHandler) InvalidateCacheHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.InvalidateCacheRequest](r)

	keys, err := h.generator.Invalidate(r.Context(), req.Query, req.CourseName)
	if err != nil {
		h.logger.Error("Cache invalidation failed", zap.Error(err), zap.String("topic", utils.Truncate(req.Query, 80)))
		utils.Fail(w, http.StatusInternalServerError, "cache_error", "Failed to invalidate cache")
		return
	}

	utils.Success(w, http.StatusOK, models.InvalidateCacheResponse{Invalidated: keys})
}

// ensureRequestID generates a request ID if one is not provided
func ensureRequestID(requestID string) string {
	if requestID == "" {
		return uuid.New().String()
	}
	return requestID
}

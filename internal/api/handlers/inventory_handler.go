package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/analytics"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type InventoryHandler struct {
	service     *service.InventoryMetricsService
	defaultTopN int
}

func NewInventoryHandler(service *service.InventoryMetricsService, defaultTopN int) *InventoryHandler {
	return &InventoryHandler{service: service, defaultTopN: defaultTopN}
}

func (h *InventoryHandler) parseRequest(c *gin.Context) (service.SummaryRequest, error) {
	req := service.SummaryRequest{TopN: h.defaultTopN}

	if raw := strings.TrimSpace(c.Query("top")); raw != "" {
		top, err := strconv.Atoi(raw)
		if err != nil || top < 0 {
			return req, errors.New("top must be a non-negative integer")
		}
		req.TopN = top
	}

	if raw := strings.TrimSpace(c.Query("category_map")); raw != "" {
		use, err := strconv.ParseBool(raw)
		if err != nil {
			return req, errors.New("category_map must be a boolean")
		}
		req.UseCategoryMap = use
	}

	return req, nil
}

func (h *InventoryHandler) GetSummary(c *gin.Context) {
	req, err := h.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "details": err.Error()})
		return
	}

	result, err := h.service.GetSummary(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, analytics.ErrMissingRetailPrice) {
			status = http.StatusUnprocessableEntity
		}
		log.Error().Err(err).Int("status", status).Msg("inventory summary failed")
		c.JSON(status, gin.H{"error": "failed to compute summary", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *InventoryHandler) InvalidateCache(c *gin.Context) {
	if err := h.service.Invalidate(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("inventory cache invalidation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate cache", "details": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

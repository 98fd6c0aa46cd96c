// Package api exposes crank status and the permissionless crank over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"FeeRouter/internal/crank"
	"FeeRouter/internal/distributor"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
	"FeeRouter/internal/notifier"
	"FeeRouter/internal/recorder"
	"FeeRouter/internal/treasury"
)

const maxListLimit = 500

// Service is what the handler needs from crank.Runner.
type Service interface {
	Status(ctx context.Context) (*crank.Status, error)
	Events(ctx context.Context, f recorder.Filter) ([]recorder.Entry, error)
	Transfers(ctx context.Context, limit int) ([]treasury.Transfer, error)
	RunNext(ctx context.Context) (*distributor.PageResult, error)
}

// Handler handles HTTP requests for the crank.
type Handler struct {
	service Service
	units   notifier.Units
	logger  *zap.Logger
}

// NewHandler creates a new crank handler
func NewHandler(service Service, units notifier.Units, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		units:   units,
		logger:  logger,
	}
}

// RegisterRoutes registers crank routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/progress", h.getProgress)
	router.GET("/policy", h.getPolicy)
	router.GET("/events", h.listEvents)
	router.GET("/transfers", h.listTransfers)
	router.POST("/crank", h.runCrank)
}

// NewRouter builds the gin engine with /health and /api/v1.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

type progressResponse struct {
	Progress    model.Progress    `json:"progress"`
	Quarantined bool              `json:"quarantined"`
	NextWindow  int64             `json:"next_window"`
	Treasury    uint64            `json:"treasury_balance"`
	Display     map[string]string `json:"display"`
}

// getProgress handles GET /api/v1/progress
func (h *Handler) getProgress(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	p := status.Progress
	c.JSON(http.StatusOK, progressResponse{
		Progress:    p,
		Quarantined: status.Quarantined,
		NextWindow:  status.NextWindow,
		Treasury:    status.TreasuryBalance,
		Display: map[string]string{
			"day_total_available":            h.units.Amount(p.DayTotalAvailable),
			"daily_distributed_to_investors": h.units.Amount(p.DailyDistributedToInvestors),
			"carry_over":                     h.units.Amount(p.CarryOver),
			"total_rounding_dust":            h.units.Amount(p.TotalRoundingDust),
			"treasury_balance":               h.units.Amount(status.TreasuryBalance),
		},
	})
}

// getPolicy handles GET /api/v1/policy
func (h *Handler) getPolicy(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"policy":   status.Policy,
		"position": status.Position,
	})
}

// listEvents handles GET /api/v1/events?day=&kind=&limit=
func (h *Handler) listEvents(c *gin.Context) {
	var f recorder.Filter
	if v := c.Query("day"); v != "" {
		day, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid day"})
			return
		}
		f.Day = day
	}
	if v := c.Query("kind"); v != "" {
		kind, ok := model.ParseEventKind(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kind"})
			return
		}
		f.Kind = kind
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	f.Limit = limit

	entries, err := h.service.Events(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": entries, "count": len(entries)})
}

// listTransfers handles GET /api/v1/transfers?limit=
func (h *Handler) listTransfers(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	transfers, err := h.service.Transfers(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": transfers, "count": len(transfers)})
}

// runCrank handles POST /api/v1/crank. Anyone may call it; the gate decides
// whether a page runs.
func (h *Handler) runCrank(c *gin.Context) {
	res, err := h.service.RunNext(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"day":            res.Day,
		"page":           res.PageIndex,
		"final":          res.Final,
		"claimed":        res.Claimed,
		"distributed":    res.Distributed,
		"withheld":       res.Withheld,
		"rounding_dust":  res.RoundingDust,
		"creator_amount": res.CreatorAmount,
		"payouts":        res.Payouts,
	})
}

func parseLimit(c *gin.Context) (int, bool) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return 0, false
		}
		limit = min(n, maxListLimit)
	}
	return limit, true
}

// fail maps registered errors to HTTP status codes.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.ErrNotFound.Is(err):
		status = http.StatusNotFound
	default:
		switch errors.CategoryOf(err) {
		case errors.CategoryGating:
			status = http.StatusConflict
		case errors.CategoryContamination:
			status = http.StatusLocked
		case errors.CategoryValidation:
			status = http.StatusBadRequest
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":    err.Error(),
		"code":     errors.CodeOf(err),
		"category": errors.CategoryOf(err),
	})
}

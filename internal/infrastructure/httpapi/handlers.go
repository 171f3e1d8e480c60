package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"SegmentCompass/internal/domain"
	"SegmentCompass/internal/usecase"
)

const defaultHistoryLimit = 50

// Handler exposes the recompute trigger surface over HTTP.
type Handler struct {
	recomputer *usecase.Recomputer
	inspector  *usecase.Inspector
	simulator  *usecase.Simulator
	sweeper    *usecase.Sweeper
	logger     *slog.Logger
}

// NewHandler wires the use cases; simulator and sweeper may be nil.
func NewHandler(recomputer *usecase.Recomputer, inspector *usecase.Inspector, simulator *usecase.Simulator, sweeper *usecase.Sweeper, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		recomputer: recomputer,
		inspector:  inspector,
		simulator:  simulator,
		sweeper:    sweeper,
		logger:     logger,
	}
}

// SetupRoutes configures all API routes.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		api.GET("/customers/:customerId", h.GetCustomer)
		api.POST("/customers/:customerId/purchases", h.RecordPurchase)
		api.POST("/customers/:customerId/recompute", h.Recompute)
		api.POST("/customers/:customerId/simulate", h.Simulate)
		api.POST("/recompute", h.RecomputeAll)
	}
}

// RecordPurchase stores a purchase event and recomputes the customer.
func (h *Handler) RecordPurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase payload"})
		return
	}

	ev := domain.Event{
		ID:         req.EventID,
		CustomerID: c.Param("customerId"),
		Type:       domain.EventPurchase,
		ProductID:  req.ProductID,
		Amount:     req.Amount,
		Quantity:   req.Quantity,
	}
	if req.Timestamp != nil {
		ev.Timestamp = req.Timestamp.UTC()
	}

	out, err := h.recomputer.RecordPurchase(c.Request.Context(), ev)
	if err != nil {
		h.fail(c, "record purchase", err)
		return
	}

	c.JSON(http.StatusCreated, toOutcome(out))
}

// Recompute forces a recompute of one customer.
func (h *Handler) Recompute(c *gin.Context) {
	out, err := h.recomputer.Recompute(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		h.fail(c, "recompute", err)
		return
	}
	c.JSON(http.StatusOK, toOutcome(out))
}

// GetCustomer returns the current features, tier, profile and ledger.
func (h *Handler) GetCustomer(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("history"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			limit = parsed
		}
	}

	snap, err := h.inspector.Snapshot(c.Request.Context(), c.Param("customerId"), limit)
	if err != nil {
		h.fail(c, "snapshot", err)
		return
	}
	c.JSON(http.StatusOK, toSnapshot(snap))
}

// Simulate scores a what-if adjustment without persisting anything.
func (h *Handler) Simulate(c *gin.Context) {
	if h.simulator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "simulation is not configured"})
		return
	}

	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid simulation payload"})
		return
	}

	sim, err := h.simulator.Simulate(c.Request.Context(), c.Param("customerId"),
		usecase.Delta{F: req.DeltaF, M: req.DeltaM, R: req.DeltaR})
	if err != nil {
		h.fail(c, "simulate", err)
		return
	}

	c.JSON(http.StatusOK, simulationDTO{
		CustomerID:   sim.CustomerID,
		Inputs:       toFeatures(sim.Inputs),
		Current:      sim.Current,
		Tier:         sim.Prediction.Tier,
		Confidence:   sim.Prediction.Confidence,
		ModelVersion: sim.Prediction.ModelVersion,
		Decision:     toDecision(sim.Decision),
	})
}

// RecomputeAll sweeps every customer with purchase history.
func (h *Handler) RecomputeAll(c *gin.Context) {
	if h.sweeper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sweep is not configured"})
		return
	}

	report, err := h.sweeper.RecomputeAll(c.Request.Context())
	dto := sweepDTO{
		Customers:   report.Customers,
		Evaluated:   report.Evaluated,
		Transitions: report.Transitions,
		Failures:    report.Failures,
	}
	if err != nil {
		h.logger.Error("sweep finished with failures", "error", err)
		c.JSON(http.StatusMultiStatus, dto)
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	var persistErr *domain.PersistenceError

	switch {
	case errors.Is(err, domain.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicateEvent):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.IsClassifierDegraded(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "classifier unavailable"})
	case errors.As(err, &persistErr):
		h.logger.Error(op+" failed", "customer_id", c.Param("customerId"), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, retry the request"})
	default:
		h.logger.Error(op+" failed", "customer_id", c.Param("customerId"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

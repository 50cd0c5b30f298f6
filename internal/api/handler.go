package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"giftcard-service/internal/models"
	"giftcard-service/internal/service"
	"giftcard-service/internal/store"
	"giftcard-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	allocator   *service.Allocator
	redemptions *service.RedemptionReporter
	cards       *service.CardService
	partnerKey  string
	adminKey    string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	allocator *service.Allocator,
	redemptions *service.RedemptionReporter,
	cards *service.CardService,
	partnerKey, adminKey string,
) *Handler {
	return &Handler{
		allocator:   allocator,
		redemptions: redemptions,
		cards:       cards,
		partnerKey:  partnerKey,
		adminKey:    adminKey,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	openapi := router.Group("/openapi/giftcard")
	openapi.Use(apiKeyMiddleware(h.partnerKey))
	{
		openapi.GET("/allocate", h.allocateCard)
		openapi.POST("/confirm", h.confirmCard)
		openapi.POST("/add", h.addCard)
	}

	admin := router.Group("/api/v1/cards")
	admin.Use(apiKeyMiddleware(h.adminKey))
	{
		admin.GET("", h.listCards)
		admin.GET("/export", h.exportCards)
		admin.GET("/:id", h.getCard)
		admin.PUT("/:id", h.updateCard)
		admin.DELETE("/:ids", h.deleteCards)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// allocateCard hands out one unused card of the requested type
func (h *Handler) allocateCard(c *gin.Context) {
	rawType := strings.TrimSpace(c.Query("giftType"))
	if rawType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "giftType parameter is required"})
		return
	}

	cardType, err := models.ParseCardType(rawType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := h.allocator.Allocate(c.Request.Context(), cardType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoCardAvailable):
			c.JSON(http.StatusNotFound, gin.H{"error": "no card of this type available"})
		case errors.Is(err, service.ErrRegistryUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reservation registry unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to allocate card"})
		}
		return
	}

	c.JSON(http.StatusOK, card)
}

// ConfirmCardRequest reports the terminal outcome for a reserved card
type ConfirmCardRequest struct {
	Code      string `json:"code" binding:"required"`
	Status    string `json:"status" binding:"required"`
	UsageType string `json:"usage_type" binding:"required"`
}

// confirmCard accepts a redemption outcome for a reserved card
func (h *Handler) confirmCard(c *gin.Context) {
	var req ConfirmCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	status, err := models.ParseStatus(req.Status)
	if err != nil || !models.IsTerminalStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be USED or ERROR"})
		return
	}

	usageType, err := models.ParseUsageType(req.UsageType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := h.redemptions.Confirm(c.Request.Context(), req.Code, service.RedemptionOutcome{
		Status:    status,
		UsageType: usageType,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCardNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found", "reason": "NotFound"})
		case errors.Is(err, service.ErrCardNotReserved):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "NotReserved"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to confirm redemption"})
		}
		return
	}

	c.JSON(http.StatusOK, card)
}

// AddCardRequest is the ingestion payload for a newly discovered card
type AddCardRequest struct {
	Sender      string `json:"sender"`
	Subject     string `json:"subject"`
	CardType    string `json:"gift_type" binding:"required"`
	DtStr       string `json:"dt_str"`
	Code        string `json:"code" binding:"required"`
	OrderNumber string `json:"order_number"`
	Amount      int64  `json:"amount"`
	ExtraNumber string `json:"extra_number"`
}

// addCard inserts a newly ingested card into the pool
func (h *Handler) addCard(c *gin.Context) {
	var req AddCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	card := &models.Card{
		Sender:      req.Sender,
		Subject:     req.Subject,
		CardType:    req.CardType,
		DtStr:       req.DtStr,
		Code:        req.Code,
		OrderNumber: req.OrderNumber,
		Amount:      req.Amount,
		ExtraNumber: req.ExtraNumber,
	}

	if err := h.cards.IngestCard(c.Request.Context(), card); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateCode):
			c.JSON(http.StatusConflict, gin.H{"error": "card code already exists", "reason": "Conflict"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, card)
}

// parseFilter extracts a CardFilter from query parameters
func parseFilter(c *gin.Context) (models.CardFilter, error) {
	var f models.CardFilter

	if s := c.Query("status"); s != "" {
		status, err := models.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	if s := c.Query("cardType"); s != "" {
		cardType, err := models.ParseCardType(s)
		if err != nil {
			return f, err
		}
		f.CardType = cardType
	}
	if s := c.Query("usageType"); s != "" {
		usageType, err := models.ParseUsageType(s)
		if err != nil {
			return f, err
		}
		f.UsageType = usageType
	}

	f.Code = c.Query("code")
	f.Sender = c.Query("sender")
	f.OrderNumber = c.Query("orderNumber")

	if s := c.Query("beginTime"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return f, err
		}
		f.BeginTime = &t
	}
	if s := c.Query("endTime"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return f, err
		}
		// endTime is inclusive on the day
		t = t.AddDate(0, 0, 1)
		f.EndTime = &t
	}

	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	return f, nil
}

// listCards lists cards with filters, pagination and pool totals
func (h *Handler) listCards(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.cards.ListCards(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list cards"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// getCard retrieves a single card by ID
func (h *Handler) getCard(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID"})
		return
	}

	card, err := h.cards.GetCard(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get card"})
		return
	}

	c.JSON(http.StatusOK, card)
}

// updateCard applies a manual edit to a card
func (h *Handler) updateCard(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID"})
		return
	}

	var card models.Card
	if err := c.ShouldBindJSON(&card); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	card.ID = id

	if err := h.cards.UpdateCard(c.Request.Context(), &card); err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": card.ID})
}

// deleteCards deletes one or more cards by comma-separated IDs
func (h *Handler) deleteCards(c *gin.Context) {
	parts := strings.Split(c.Param("ids"), ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID: " + p})
			return
		}
		ids = append(ids, id)
	}

	n, err := h.cards.DeleteCards(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete cards"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// exportCards streams the filtered card set as CSV
func (h *Handler) exportCards(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="gift_cards.csv"`)

	if err := h.cards.ExportCards(c.Request.Context(), f, c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export cards"})
		return
	}
}

// apiKeyMiddleware rejects requests whose Authorization header does not
// carry the expected static key
func apiKeyMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		key = strings.TrimPrefix(key, "Bearer ")

		if expected == "" || key != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/lead-console/internal/leads"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "lead_console_request_id"
)

var errMissingConsole = errors.New("console dependency required")

type Dependencies struct {
	Console        *leads.Console
	Realtime       *RealtimeDispatcher
	MetricsHandler http.Handler
	Logger         *zap.Logger
	Clock          func() time.Time

	schedule scheduleFunc
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Console == nil {
		return nil, errMissingConsole
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	schedule := deps.schedule
	if schedule == nil {
		schedule = afterFunc
	}
	dispatcher := deps.Realtime
	if dispatcher == nil {
		dispatcher = NewRealtimeDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(logger))
	router.Use(corsMiddleware())

	handler := &httpHandler{
		host:       newConsoleHost(deps.Console, dispatcher, schedule, clock, logger),
		dispatcher: dispatcher,
		logger:     logger,
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	console := router.Group("/console")
	console.GET("", handler.handleState)
	console.GET("/stream", handler.handleStream)
	console.PUT("/query", handler.handleQuery)
	console.PUT("/sort", handler.handleSort)
	console.PUT("/page-size", handler.handlePageSize)
	console.PUT("/page", handler.handlePage)
	console.POST("/page/next", handler.handleNextPage)
	console.POST("/page/prev", handler.handlePrevPage)
	console.POST("/reload", handler.handleReload)
	console.POST("/selection", handler.handleSelect)
	console.DELETE("/selection", handler.handleClearSelection)
	console.POST("/edit", handler.handleOpenEdit)
	console.PATCH("/edit", handler.handleUpdateEdit)
	console.DELETE("/edit", handler.handleCloseEdit)
	console.POST("/edit/reset", handler.handleResetEdit)
	console.POST("/edit/submit", handler.handleSubmitEdit)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	})
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set(requestIDContextKey, requestID)
		c.Next()
	}
}

func accessLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)))
	}
}

type httpHandler struct {
	host       *consoleHost
	dispatcher *RealtimeDispatcher
	logger     *zap.Logger
}

type queryRequestPayload struct {
	Query string `json:"query"`
}

type sortRequestPayload struct {
	Sort string `json:"sort"`
}

type pageSizeRequestPayload struct {
	PageSize int `json:"page_size"`
}

type pageRequestPayload struct {
	Page int `json:"page"`
}

type leadRequestPayload struct {
	ID string `json:"id"`
}

func (h *httpHandler) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, h.host.state())
}

func (h *httpHandler) handleQuery(c *gin.Context) {
	var request queryRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	h.respondWith(c, func(console *leads.Console) {
		console.SetQuery(request.Query)
	})
}

func (h *httpHandler) handleSort(c *gin.Context) {
	var request sortRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	key, err := leads.ParseSortKey(request.Sort)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_sort"})
		return
	}
	h.respondWith(c, func(console *leads.Console) {
		console.SetSort(key)
	})
}

func (h *httpHandler) handlePageSize(c *gin.Context) {
	var request pageSizeRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.PageSize <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_page_size"})
		return
	}
	var err error
	h.host.do(func(console *leads.Console) {
		err = console.SetPageSize(request.PageSize)
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_page_size"})
		return
	}
	c.JSON(http.StatusOK, h.host.state())
}

func (h *httpHandler) handlePage(c *gin.Context) {
	var request pageRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	h.respondWith(c, func(console *leads.Console) {
		console.SetPage(request.Page)
	})
}

func (h *httpHandler) handleNextPage(c *gin.Context) {
	h.respondWith(c, func(console *leads.Console) {
		console.NextPage()
	})
}

func (h *httpHandler) handlePrevPage(c *gin.Context) {
	h.respondWith(c, func(console *leads.Console) {
		console.PrevPage()
	})
}

func (h *httpHandler) handleReload(c *gin.Context) {
	applied, err := h.host.reload(c.Request.Context())
	if err != nil {
		h.respondTransportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "state": h.host.state()})
}

func (h *httpHandler) handleSelect(c *gin.Context) {
	var request leadRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	h.respondWith(c, func(console *leads.Console) {
		console.Select(request.ID)
	})
}

func (h *httpHandler) handleClearSelection(c *gin.Context) {
	h.respondWith(c, func(console *leads.Console) {
		console.ClearSelection()
	})
}

func (h *httpHandler) handleOpenEdit(c *gin.Context) {
	var request leadRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	var opened bool
	h.host.do(func(console *leads.Console) {
		opened = console.OpenEdit(request.ID)
	})
	if !opened {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead_not_found"})
		return
	}
	c.JSON(http.StatusOK, h.host.state())
}

func (h *httpHandler) handleUpdateEdit(c *gin.Context) {
	var request map[string]string
	if err := c.ShouldBindJSON(&request); err != nil || len(request) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	updates := make(map[leads.Field]string, len(request))
	for rawField, value := range request {
		field, err := leads.ParseField(rawField)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_field", "field": rawField})
			return
		}
		updates[field] = value
	}

	var err error
	h.host.do(func(console *leads.Console) {
		for _, field := range leads.EditableFields {
			value, ok := updates[field]
			if !ok {
				continue
			}
			if err = console.UpdateField(field, value); err != nil {
				return
			}
		}
	})
	if err != nil {
		h.respondConsoleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.host.state())
}

func (h *httpHandler) handleResetEdit(c *gin.Context) {
	var err error
	h.host.do(func(console *leads.Console) {
		err = console.ResetEdit()
	})
	if err != nil {
		h.respondConsoleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.host.state())
}

func (h *httpHandler) handleCloseEdit(c *gin.Context) {
	h.respondWith(c, func(console *leads.Console) {
		console.CloseEdit()
	})
}

func (h *httpHandler) handleSubmitEdit(c *gin.Context) {
	var request leadRequestPayload
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}

	outcome, err := h.host.submit(c.Request.Context(), strings.TrimSpace(request.ID))
	if err != nil {
		switch {
		case errors.Is(err, leads.ErrNoEditSession), errors.Is(err, leads.ErrSubmitInFlight), errors.Is(err, leads.ErrNothingToSave):
			h.respondConsoleError(c, err)
		default:
			h.respondTransportError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": outcome.Saved, "message": outcome.Message, "state": h.host.state()})
}

func (h *httpHandler) handleStream(c *gin.Context) {
	stream, cleanup := h.dispatcher.Subscribe(c.Request.Context())
	defer cleanup()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent(RealtimeEventState, h.host.state())
	c.Writer.Flush()

	heartbeat := time.NewTicker(realtimeHeartbeatEvery)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, message.State)
			return true
		case <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"ts": time.Now().UTC().Unix()})
			return true
		}
	})
}

func (h *httpHandler) respondWith(c *gin.Context, fn func(console *leads.Console)) {
	h.host.do(fn)
	c.JSON(http.StatusOK, h.host.state())
}

func (h *httpHandler) respondConsoleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, leads.ErrNoEditSession):
		c.JSON(http.StatusNotFound, gin.H{"error": "no_edit_session"})
	case errors.Is(err, leads.ErrSubmitInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "submit_in_flight"})
	case errors.Is(err, leads.ErrNothingToSave):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "nothing_to_save"})
	case errors.Is(err, leads.ErrUnknownField):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_field"})
	default:
		h.logger.Error("console transition failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func (h *httpHandler) respondTransportError(c *gin.Context, err error) {
	h.logger.Warn("leads service call failed",
		zap.String("request_id", c.GetString(requestIDContextKey)),
		zap.Error(err))
	message := err.Error()
	var messenger leads.UserMessenger
	if errors.As(err, &messenger) && messenger.UserMessage() != "" {
		message = messenger.UserMessage()
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "transport_failed", "message": message})
}

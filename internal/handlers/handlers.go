package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/graphscribe/graphscribe/internal/diagram"
	"github.com/graphscribe/graphscribe/internal/metrics"
	"github.com/graphscribe/graphscribe/internal/ops"
	"github.com/graphscribe/graphscribe/internal/sse"
	"github.com/graphscribe/graphscribe/pkg/logging"
	"github.com/graphscribe/graphscribe/pkg/monitoring"
)

const serviceName = "graphscribe"

// Handlers contains the HTTP handlers for the service
type Handlers struct {
	stream  *sse.Server
	health  *monitoring.HealthChecker
	logger  logging.Logger
	metrics *metrics.Metrics

	validation   *ops.ValidationDriver
	optimization *ops.OptimizationDriver
	templates    *ops.TemplateDriver
	conversion   *ops.ConversionDriver

	startTime time.Time
}

// New creates a handlers instance wired to the streaming server and drivers.
func New(stream *sse.Server, driverOpts ops.Options, health *monitoring.HealthChecker, logger logging.Logger, m *metrics.Metrics) *Handlers {
	return &Handlers{
		stream:       stream,
		health:       health,
		logger:       logger,
		metrics:      m,
		validation:   ops.NewValidationDriver(driverOpts),
		optimization: ops.NewOptimizationDriver(driverOpts),
		templates:    ops.NewTemplateDriver(driverOpts),
		conversion:   ops.NewConversionDriver(driverOpts),
		startTime:    time.Now(),
	}
}

// HandleEvents establishes an SSE streaming connection.
func (h *Handlers) HandleEvents(c *gin.Context) {
	h.stream.ServeSSE(c.Writer, c.Request)
}

// HandleWS establishes a WebSocket mirror of the event stream.
func (h *Handlers) HandleWS(c *gin.Context) {
	h.stream.ServeWS(c.Writer, c.Request)
}

// HandleHealth returns the service health plus the streaming status snapshot.
func (h *Handlers) HandleHealth(c *gin.Context) {
	health := h.health.CheckHealth()
	status := h.stream.Status()

	code := http.StatusOK
	if health.Status == monitoring.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    health.Status,
		"service":   serviceName,
		"version":   health.Version,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"checks":    health.Checks,
		"stream":    status,
	})
}

// operationDoc describes one supported operation kind.
type operationDoc struct {
	Operation   string   `json:"operation"`
	Description string   `json:"description"`
	Stages      []string `json:"stages"`
	Parameters  []string `json:"parameters"`
}

var operationDocs = map[string]operationDoc{
	"validate": {
		Operation:   "validate",
		Description: "Validate diagram code and stream staged progress",
		Stages:      []string{ops.StageParsing, ops.StageSyntaxCheck, ops.StageSemanticAnalysis, "complete"},
		Parameters:  []string{"code", "strict"},
	},
	"optimize": {
		Operation:   "optimize",
		Description: "Optimize diagram structure toward the requested goals",
		Stages:      []string{ops.StageAnalysis, ops.StageLayout, ops.StageReadability, ops.StageFormatting, "complete"},
		Parameters:  []string{"code", "goals", "preserveSemantics", "maxSuggestions"},
	},
	"templates": {
		Operation:   "templates",
		Description: "Select diagram templates by incremental filters",
		Stages:      []string{ops.StageSelection, ops.StageApplication, ops.StageCustomization, "complete"},
		Parameters:  []string{"type", "useCase", "complexity"},
	},
	"convert": {
		Operation:   "convert",
		Description: "Convert diagram code between formats",
		Stages:      []string{ops.StageDetection, ops.StageConvParsing, ops.StageConversion, ops.StageOptimization, "complete"},
		Parameters:  []string{"code", "targetFormat", "optimizeStructure"},
	},
}

// HandleStreamOperation runs an operation driver against an open streaming
// connection, or documents the operation when no connection is named.
func (h *Handlers) HandleStreamOperation(c *gin.Context) {
	opName := c.Param("operation")
	doc, ok := operationDocs[opName]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "unknown_operation",
			"service": serviceName,
			"message": "supported operations: validate, optimize, templates, convert",
		})
		return
	}

	connID := c.Query("connection")
	if connID == "" {
		c.JSON(http.StatusOK, doc)
		return
	}

	conn, ok := h.stream.Registry().Get(connID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "unknown_connection",
			"service": serviceName,
			"message": "no open streaming connection with that id",
		})
		return
	}

	emit := func(e sse.Event) error {
		return h.stream.Send(conn, e)
	}

	start := time.Now()
	status := "ok"
	defer func() {
		if h.metrics != nil {
			h.metrics.OperationsTotal.WithLabelValues(opName, status).Inc()
			h.metrics.OperationDuration.WithLabelValues(opName).Observe(time.Since(start).Seconds())
		}
	}()

	requestID := c.GetString("request_id")
	ctx := c.Request.Context()

	switch opName {
	case "validate":
		req := ops.ValidateRequest{RequestID: requestID}
		if !h.bindOperationInput(c, &req) {
			status = "bad_request"
			return
		}
		result := h.validation.Run(ctx, req, emit)
		if !result.Valid {
			status = "invalid"
		}
		c.JSON(http.StatusOK, result)

	case "optimize":
		req := ops.OptimizeRequest{RequestID: requestID}
		if !h.bindOperationInput(c, &req) {
			status = "bad_request"
			return
		}
		if c.Request.Method == http.MethodGet {
			req.OptimizeInput = optimizeInputFromQuery(c)
		}
		result := h.optimization.Run(ctx, req, emit)
		c.JSON(http.StatusOK, result)

	case "templates":
		req := ops.TemplateRequest{RequestID: requestID}
		if !h.bindOperationInput(c, &req) {
			status = "bad_request"
			return
		}
		if c.Request.Method == http.MethodGet {
			req.TemplateFilter = diagram.TemplateFilter{
				Type:       c.Query("type"),
				UseCase:    c.Query("useCase"),
				Complexity: c.Query("complexity"),
			}
		}
		result := h.templates.Run(ctx, req, emit)
		c.JSON(http.StatusOK, gin.H{"templates": result, "count": len(result)})

	case "convert":
		req := ops.ConvertRequest{RequestID: requestID}
		if !h.bindOperationInput(c, &req) {
			status = "bad_request"
			return
		}
		if c.Request.Method == http.MethodGet {
			req.Code = c.Query("code")
			req.TargetFormat = c.DefaultQuery("targetFormat", "auto")
			req.OptimizeStructure = c.Query("optimizeStructure") == "true"
		}
		converted, err := h.conversion.Run(ctx, req, emit)
		if err != nil {
			status = "error"
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "conversion_failed",
				"service": serviceName,
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"convertedCode": converted})
	}
}

// bindOperationInput decodes a JSON body into the request for POST calls.
// GET callers pass input through query parameters instead.
func (h *Handlers) bindOperationInput(c *gin.Context, req any) bool {
	if c.Request.Method != http.MethodPost {
		h.bindQueryDefaults(c, req)
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request_body",
			"service": serviceName,
			"message": err.Error(),
		})
		return false
	}
	return true
}

func (h *Handlers) bindQueryDefaults(c *gin.Context, req any) {
	switch r := req.(type) {
	case *ops.ValidateRequest:
		r.Code = c.Query("code")
		r.Strict = c.Query("strict") == "true"
	}
}

func optimizeInputFromQuery(c *gin.Context) diagram.OptimizeInput {
	in := diagram.OptimizeInput{
		Code:              c.Query("code"),
		PreserveSemantics: c.DefaultQuery("preserveSemantics", "true") == "true",
	}
	if goals := c.Query("goals"); goals != "" {
		for _, g := range strings.Split(goals, ",") {
			if trimmed := strings.TrimSpace(g); trimmed != "" {
				in.Goals = append(in.Goals, trimmed)
			}
		}
	}
	if max := c.Query("maxSuggestions"); max != "" {
		if parsed, err := strconv.Atoi(max); err == nil {
			in.MaxSuggestions = parsed
		}
	}
	return in
}

// BroadcastRequest is the admin broadcast body.
type BroadcastRequest struct {
	Event string `json:"event" binding:"required"`
	Data  any    `json:"data"`
}

// HandleBroadcast pushes an event to every connection subscribed to its
// type.
func (h *Handlers) HandleBroadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request_body",
			"service": serviceName,
			"message": err.Error(),
		})
		return
	}
	if req.Data == nil {
		req.Data = map[string]any{}
	}

	event := sse.Event{Event: req.Event, Data: req.Data}
	if !sse.Validate(event) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_event",
			"service": serviceName,
			"message": "event must have a non-empty type and a payload",
		})
		return
	}

	delivered := h.stream.BroadcastEvent(event)
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

// HandleNotFound provides a custom 404 handler
func (h *Handlers) HandleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "not_found",
		"service": serviceName,
		"message": "Endpoint not found",
	})
}

package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapbooth/boothd/internal/alert"
	"github.com/snapbooth/boothd/internal/core"
)

type TestAlertRequest struct {
	Kind string `json:"kind"`
}

type AlertHandler struct {
	alerts *alert.Dispatcher
}

func NewAlertHandler(alerts *alert.Dispatcher) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

var failureKinds = map[string]core.FailureKind{
	string(core.KindPaperJam):        core.KindPaperJam,
	string(core.KindNoPaper):         core.KindNoPaper,
	string(core.KindNoInk):           core.KindNoInk,
	string(core.KindLowInk):          core.KindLowInk,
	string(core.KindPrinterOffline):  core.KindPrinterOffline,
	string(core.KindConnectionError): core.KindConnectionError,
	string(core.KindUnknown):         core.KindUnknown,
}

// SendTestAlert pushes a low-priority notification through the real
// notifier. An empty body tests the generic path; a kind exercises
// that kind's title.
func (h *AlertHandler) SendTestAlert(c *gin.Context) {
	var req TestAlertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if req.Kind == "" {
		req.Kind = string(core.KindUnknown)
	}
	kind, ok := failureKinds[req.Kind]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown failure kind %q", req.Kind)})
		return
	}

	if err := h.alerts.SendTest(kind); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sent": true,
		"kind": req.Kind,
	})
}

func (h *AlertHandler) ListAlertStatus(c *gin.Context) {
	statuses := h.alerts.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"alerts": statuses,
		"count":  len(statuses),
	})
}

func (h *AlertHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/alerts", h.ListAlertStatus)
	r.POST("/alerts/test", h.SendTestAlert)
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapbooth/boothd/internal/printer"
)

// PrinterService is the slice of the CUPS adapter the HTTP layer
// needs.
type PrinterService interface {
	ListPrinters(ctx context.Context) ([]string, error)
	DefaultPrinter(ctx context.Context) (string, error)
	Reachable(ctx context.Context) error
	PrintTestPage(ctx context.Context, printerName string) error
}

type TestPrintRequest struct {
	PrinterName string `json:"printer_name"`
}

type PrinterHandler struct {
	printers PrinterService
}

func NewPrinterHandler(printers PrinterService) *PrinterHandler {
	return &PrinterHandler{printers: printers}
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	ctx := c.Request.Context()

	names, err := h.printers.ListPrinters(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to list printers: " + err.Error()})
		return
	}

	// Best effort; an unresolvable default leaves the field empty.
	defaultName, _ := h.printers.DefaultPrinter(ctx)

	c.JSON(http.StatusOK, gin.H{
		"printers": names,
		"count":    len(names),
		"default":  defaultName,
	})
}

// TestPrinter checks that the CUPS server answers and then pushes a
// test page to the chosen printer.
func (h *PrinterHandler) TestPrinter(c *gin.Context) {
	var req TestPrintRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx := c.Request.Context()

	if err := h.printers.Reachable(ctx); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	name := req.PrinterName
	if name == "" {
		resolved, err := h.printers.DefaultPrinter(ctx)
		if err != nil {
			if errors.Is(err, printer.ErrNoPrinters) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		name = resolved
	}

	if err := h.printers.PrintTestPage(ctx, name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"printed": true,
		"printer": name,
	})
}

func (h *PrinterHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/printers", h.ListPrinters)
	r.POST("/printers/test", h.TestPrinter)
}

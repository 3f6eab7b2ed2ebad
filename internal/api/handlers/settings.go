package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/snapbooth/boothd/internal/archive"
	"github.com/snapbooth/boothd/internal/config"
	"github.com/snapbooth/boothd/internal/db"
	"github.com/snapbooth/boothd/internal/printer"
	"github.com/snapbooth/boothd/internal/share"
)

const (
	settingsKeyGreeting      = "greeting"
	settingsKeyCountryPrefix = "country_prefix"
	settingsKeyArchiveDays   = "archive_days"
	settingsKeyArchivePrune  = "archive_prune"
)

type SettingsHandler struct {
	config   *config.Config
	share    *share.Dispatcher
	archiver *archive.Archiver
}

type SettingsResponse struct {
	DefaultPrinter string `json:"default_printer"`
	Greeting       string `json:"greeting"`
	CountryPrefix  string `json:"country_prefix"`
	ArchiveDays    int    `json:"archive_days"`
	ArchivePrune   bool   `json:"archive_prune"`
}

type UpdateSettingsRequest struct {
	DefaultPrinter *string `json:"default_printer"`
	Greeting       *string `json:"greeting"`
	CountryPrefix  *string `json:"country_prefix"`
	ArchiveDays    *int    `json:"archive_days"`
	ArchivePrune   *bool   `json:"archive_prune"`
}

func NewSettingsHandler(cfg *config.Config, dispatcher *share.Dispatcher, archiver *archive.Archiver) *SettingsHandler {
	return &SettingsHandler{
		config:   cfg,
		share:    dispatcher,
		archiver: archiver,
	}
}

// ApplyStored replays persisted operator overrides onto the live
// components. Called once at startup so settings survive restarts; the
// default printer needs no replay because the adapter reads it from
// the store on every resolution.
func (h *SettingsHandler) ApplyStored(ctx context.Context) {
	if s, err := db.Settings.GetSetting(ctx, settingsKeyGreeting); err == nil {
		h.share.SetGreeting(s.Value)
	}
	if s, err := db.Settings.GetSetting(ctx, settingsKeyCountryPrefix); err == nil {
		h.share.SetCountryPrefix(s.Value)
	}
	if s, err := db.Settings.GetSetting(ctx, settingsKeyArchiveDays); err == nil {
		if days, err := strconv.Atoi(s.Value); err == nil {
			h.archiver.SetArchiveDays(days)
		}
	}
	if s, err := db.Settings.GetSetting(ctx, settingsKeyArchivePrune); err == nil {
		h.archiver.SetArchivePrune(s.Value == "true")
	}
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.currentSettings(c.Request.Context()))
}

func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	if req.DefaultPrinter != nil {
		if err := db.Settings.SetSetting(ctx, printer.DefaultPrinterKey, *req.DefaultPrinter); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save default printer"})
			return
		}
	}
	if req.Greeting != nil {
		if err := db.Settings.SetSetting(ctx, settingsKeyGreeting, *req.Greeting); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save greeting"})
			return
		}
		h.share.SetGreeting(*req.Greeting)
	}
	if req.CountryPrefix != nil && *req.CountryPrefix != "" {
		if err := db.Settings.SetSetting(ctx, settingsKeyCountryPrefix, *req.CountryPrefix); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save country prefix"})
			return
		}
		h.share.SetCountryPrefix(*req.CountryPrefix)
	}
	if req.ArchiveDays != nil {
		if *req.ArchiveDays < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "archive_days must be at least 1"})
			return
		}
		if err := db.Settings.SetSetting(ctx, settingsKeyArchiveDays, strconv.Itoa(*req.ArchiveDays)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save archive days"})
			return
		}
		h.archiver.SetArchiveDays(*req.ArchiveDays)
	}
	if req.ArchivePrune != nil {
		if err := db.Settings.SetSetting(ctx, settingsKeyArchivePrune, strconv.FormatBool(*req.ArchivePrune)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save archive prune"})
			return
		}
		h.archiver.SetArchivePrune(*req.ArchivePrune)
	}

	c.JSON(http.StatusOK, h.currentSettings(ctx))
}

func (h *SettingsHandler) currentSettings(ctx context.Context) SettingsResponse {
	resp := SettingsResponse{
		DefaultPrinter: h.config.Printer.DefaultName,
		Greeting:       h.share.Greeting(),
		CountryPrefix:  h.share.CountryPrefix(),
		ArchiveDays:    h.archiver.GetArchiveDays(),
		ArchivePrune:   h.archiver.GetArchivePrune(),
	}

	if s, err := db.Settings.GetSetting(ctx, printer.DefaultPrinterKey); err == nil && s.Value != "" {
		resp.DefaultPrinter = s.Value
	}

	return resp
}

func (h *SettingsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/settings", h.GetSettings)
	r.PUT("/settings", h.UpdateSettings)
}

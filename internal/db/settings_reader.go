package db

import (
	"context"
	"database/sql"
	"log/slog"
)

// SettingsReader exposes the settings table as a lookup for components
// that only need single values, like default printer resolution.
type SettingsReader struct {
	log *slog.Logger
}

func NewSettingsReader(logger *slog.Logger) *SettingsReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsReader{log: logger.With("component", "settings")}
}

func (r *SettingsReader) Get(ctx context.Context, key string) (string, bool) {
	s, err := Settings.GetSetting(ctx, key)
	if err != nil {
		if err != sql.ErrNoRows {
			r.log.Warn("failed to read setting", "key", key, "error", err)
		}
		return "", false
	}
	return s.Value, true
}

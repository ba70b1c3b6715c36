package app

import (
	"log/slog"
	"time"

	"github.com/mrcode/control-tray/internal/dexcom"
	"github.com/mrcode/control-tray/internal/health"
	"github.com/mrcode/control-tray/internal/logbook"
	"github.com/mrcode/control-tray/internal/models"
	"github.com/mrcode/control-tray/internal/nightscout"
	"github.com/mrcode/control-tray/internal/pipeline"
)

// sources are the collaborators built from one settings snapshot. Any of
// them is nil when not configured.
type sources struct {
	remote     pipeline.RemoteSource
	health     health.Source
	pusher     logbook.TreatmentPusher
	dexcom     *dexcom.Client
	nightscout *nightscout.Client
}

func buildSources(settings *models.Settings, logger *slog.Logger) sources {
	cfg := settings.Clone()
	var src sources

	if cfg.DexcomUsername != "" && cfg.DexcomPassword != "" {
		src.dexcom = dexcom.NewClient(dexcom.RegionURL(cfg.DexcomRegion), cfg.DexcomUsername, cfg.DexcomPassword, logger)
		src.remote = src.dexcom
	}

	if cfg.NightscoutURL != "" {
		src.nightscout = nightscout.NewClient(cfg.NightscoutURL, cfg.APISecret, cfg.APIToken, cfg.UseToken)
		if cfg.SyncEnabled {
			src.pusher = src.nightscout
		}
	}

	switch cfg.HealthSource {
	case models.HealthSourceExport:
		if cfg.HealthExportPath != "" {
			src.health = health.NewExportSource(cfg.HealthExportPath, logger)
		}
	case models.HealthSourceNightscout:
		if src.nightscout != nil {
			src.health = health.NewNightscoutSource(src.nightscout, logger)
		}
	}

	return src
}

// connectionTimeout bounds TestConnection
const connectionTimeout = 15 * time.Second

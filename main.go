// Package main is the entry point for the Control Tray application
package main

import (
	"embed"
	"os"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"github.com/mrcode/control-tray/internal/app"
	"github.com/mrcode/control-tray/internal/logging"
	"github.com/mrcode/control-tray/internal/models"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	settings := models.DefaultSettings()
	loadErr := settings.Load()
	settings.ApplyEnv(os.Getenv)

	cfg := settings.Clone()
	level, levelErr := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(os.Getenv("CONTROL_ENV"), level, app.Version)
	if loadErr != nil {
		logger.Warn("loading settings, using defaults", "error", loadErr)
	}
	if levelErr != nil {
		logger.Warn("bad log level", "error", levelErr)
	}

	service := app.NewControlService(settings, logger)

	wailsApp := application.New(application.Options{
		Name:        "Control Tray",
		Description: "Glucose tracker and dose calculator",
		Logger:      logger,
		Services: []application.Service{
			application.NewService(service),
		},
		Assets: application.AssetOptions{
			Handler: application.AssetFileServerFS(assets),
		},
		Mac: application.MacOptions{
			ActivationPolicy: application.ActivationPolicyAccessory,
		},
	})
	service.SetApp(wailsApp)

	window := wailsApp.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:            "Control Tray",
		Width:            cfg.WindowWidth,
		Height:           cfg.WindowHeight,
		MinWidth:         600,
		MinHeight:        500,
		Hidden:           cfg.StartMinimized,
		URL:              "/",
		BackgroundColour: application.NewRGB(27, 38, 54),
	})

	// Closing the window hides it; the tray keeps running
	window.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		window.Hide()
		e.Cancel()
	})

	showWindow := func() {
		window.Show()
		window.Focus()
	}

	menu := application.NewMenu()
	menu.Add("Open Dashboard").OnClick(func(*application.Context) { showWindow() })
	menu.Add("Refresh").OnClick(func(*application.Context) { service.ForceRefresh() })
	menu.AddSeparator()
	menu.Add("Quit").OnClick(func(*application.Context) { wailsApp.Quit() })

	systemTray := wailsApp.SystemTray.New()
	systemTray.SetMenu(menu)
	systemTray.OnClick(showWindow)
	service.SetTray(app.NewSystemTray(systemTray))

	if err := wailsApp.Run(); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"mlboard/internal/adapters/api"
	"mlboard/internal/adapters/tui"
	"mlboard/internal/config"
	"mlboard/internal/core/listview"
	"mlboard/internal/core/logger"
	"mlboard/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// The terminal belongs to the UI; logs go to a file when asked for.
	logOut, err := logOutput(os.Getenv("MLBOARD_TUI_LOG"))
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logOut.Close()
	logger.InitWriter(logOut, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	burst := max(1, int(cfg.UpstreamRPS))
	client := api.NewClient(cfg.APIURL, cfg.UpstreamTimeout,
		api.WithToken(cfg.APIToken),
		api.WithRateLimit(cfg.UpstreamRPS, burst),
	)
	dashboard := services.NewDashboardService(client, nil)

	model := tui.NewModel(ctx, client, dashboard, listview.Options{
		DefaultDescending: cfg.DefaultSortDescending,
		DefaultPageSize:   cfg.DefaultPageSize,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "mlboard: %v\n", err)
		os.Exit(1)
	}
}

func logOutput(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

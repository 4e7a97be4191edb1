package commands

import (
	"context"
	"log/slog"

	"sigaedu-backend/lib/configutil"
	"sigaedu-backend/lib/scrapers/sigaedu"
)

type Config struct {
	BaseUrl   string `json:"base_url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	UserAgent string `json:"user_agent"`
}

func createScraper(ctx context.Context) (sigaedu.Scraper, Config) {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		fatal("failed to read config", err)
	}

	slog.Info("logging in", "base_url", cfg.BaseUrl, "username", cfg.Username)

	session, err := sigaedu.NewSession(ctx, sigaedu.SessionOptions{
		BaseUrl:   cfg.BaseUrl,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		fatal("failed to initialize session", err)
	}
	err = session.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		fatal("failed to login", err)
	}

	return sigaedu.NewScraper(session), cfg
}

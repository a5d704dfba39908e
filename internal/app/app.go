package app

import (
	"context"
	"fmt"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/config"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/events"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/logging"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/notify"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/prefs"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/report"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/session"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/state"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/ui"
)

// Options configure the OliLab client.
type Options struct {
	ConfigPath string   // empty uses ~/.config/olilab/config.toml
	EnvFiles   []string // dotenv files loaded before the config; missing files are skipped
	APIURL     string   // overrides config and environment when set
}

// Run boots the client until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	if err := config.LoadDotenv(opts.EnvFiles...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}

	logger, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = logger.Close() }()
	log := logger.Logger

	userPrefs, err := prefs.Load(cfg.PrefsPath)
	if err != nil {
		log.Warn().Err(err).Msg("using default preferences")
	}

	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = api.ResolveBaseURL(cfg.ServedFrom)
	}
	clientOpts := []api.Option{api.WithLogger(log)}
	if cfg.RequestTimeout > 0 {
		clientOpts = append(clientOpts, api.WithTimeout(cfg.RequestTimeout))
	}
	client, err := api.NewClient(baseURL, clientOpts...)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}
	log.Info().Str("base_url", client.BaseURL()).Msg("starting")

	bus := events.NewBus(log)
	store := state.New(client, bus, log)

	guard := session.NewGuard(client, session.NewFileStore(cfg.SessionPath), bus, log)
	defer guard.Close()
	guard.Activate()

	dispatcher := notify.NewDispatcher(notify.NewSender(cfg.NotifyWebhook, log), cfg.NotifyRate, log)
	dispatcher.Attach(bus)
	dispatcher.Start(ctx)
	defer dispatcher.Close()

	var reports report.Generator
	if cfg.ReportEndpoint != "" {
		reports = report.NewHTTPGenerator(cfg.ReportEndpoint, log)
	}

	StartRefresher(ctx, store, cfg.RefreshInterval, log)

	return ui.Run(ui.Options{
		Context: ctx,
		Store:   store,
		Guard:   guard,
		Prefs:   userPrefs,
		Reports: reports,
		LogPath: logger.Path(),
		BaseURL: client.BaseURL(),
	})
}

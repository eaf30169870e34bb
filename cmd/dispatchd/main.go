package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/fsmailbox"
	dhttp "github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/http"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/otel"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/ristretto"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/ws"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/config"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/agent"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/routing"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/logger"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/middleware"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/notifier"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/taskregistry"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/resilience"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/secrets"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/service"
)

const version = "0.3.0"

// secretKeys are the environment variables loaded into the vault. Settings
// maps reference them by provider convention; config files never hold them.
var secretKeys = []string{
	"NOTION_TOKEN",
	"SLACK_WEBHOOK_URL",
	"DISCORD_WEBHOOK_URL",
	"EMAIL_SMTP_PASSWORD",
}

func main() {
	// Bootstrap logger to stderr; serve and once swap in the configured
	// stdout logger so CLI output on stdout stays parseable.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return runServe()
	}

	switch args[0] {
	case "serve":
		return runServe()
	case "once":
		return runOnce(args[1:])
	case "mark":
		return runMark(args[1:])
	case "agents":
		return runAgents(args[1:])
	case "version":
		fmt.Println("dispatchd " + version)
		return nil
	case "help", "--help", "-h":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: dispatchd [command] [options]

Commands:
  serve     Run the dispatch loop and status API (default)
  once      Run a single dispatch cycle and exit
  mark      Move a pending handoff document to processed or failed
  agents    List configured workers and their mailbox depths
  version   Print the version
  help      Show this help message

Examples:
  dispatchd
  dispatchd once
  dispatchd mark --agent video-agent --name 20260101T000000Z__HANDOFF__Cut-trailer__ab12cd34.json --outcome success
  dispatchd mark --file /var/lib/dispatchd/mailboxes/video-agent/pending/20260101T000000Z__HANDOFF__Cut-trailer__ab12cd34.json
  dispatchd agents
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	holder := config.NewHolder(cfg, config.DefaultConfigFile)

	log, closeLog := logger.NewWithCloser(cfg.Logging)
	slog.SetDefault(log)
	defer closeLog.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"provider", cfg.Registry.Provider,
		"mailbox_base", cfg.Mailbox.Base,
		"agents", len(cfg.Agents),
		"interval", cfg.Dispatch.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --- Telemetry ---
	shutdownOtel, err := otel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownOtel(sctx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	var metrics *otel.Metrics
	if cfg.Telemetry.Enabled {
		metrics, err = otel.NewMetrics()
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	// --- Secrets ---
	vault, err := secrets.NewVault(secrets.EnvLoader(secretKeys...))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	slog.Info("secrets loaded",
		"keys", vault.Keys(),
		"registry_token", vault.Redacted("NOTION_TOKEN"))

	// --- Infrastructure ---
	boxes, err := fsmailbox.New(cfg.Mailbox.Base)
	if err != nil {
		return fmt.Errorf("mailbox: %w", err)
	}
	table := routing.NewTable(routingAgents(cfg.Agents), cfg.DefaultAgent)
	for _, a := range table.Agents() {
		if err := boxes.Ensure(a.Slug()); err != nil {
			return fmt.Errorf("mailbox %s: %w", a.Slug(), err)
		}
	}
	slog.Info("mailboxes ready", "base", cfg.Mailbox.Base)

	registry, err := newRegistry(cfg, vault)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	slog.Info("registry configured", "provider", registry.Name())

	// --- Services ---
	hub := ws.NewHub()
	notifications := buildNotifications(cfg.Notifiers, vault)

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	selector := service.NewSelectorService(registry, breaker, cfg.Dispatch.ActionableStatuses)
	if cfg.Cache.Enabled {
		c, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer c.Close()
		selector.SetCache(c, cfg.Cache.TTL)
	}

	orch := service.NewOrchestratorService(selector, registry, boxes, table, cfg.Dispatch)
	orch.SetBroadcaster(hub)
	orch.SetNotifications(notifications)

	marker := service.NewMarkerService(boxes)
	marker.SetBroadcaster(hub)

	if metrics != nil {
		selector.SetMetrics(metrics)
		orch.SetMetrics(metrics)
	}

	// --- HTTP ---
	handlers := &dhttp.Handlers{
		Selector:     selector,
		Orchestrator: orch,
		Marker:       marker,
		Boxes:        boxes,
		Table:        table,
		SelectLimit:  cfg.Dispatch.SelectLimit,
		Version:      version,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(dhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(dhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(dhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()
	r.Use(limiter.Handler)

	if cfg.Telemetry.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Telemetry.ServiceName))
	}

	// Health endpoint reads through the holder so SIGHUP reloads show up.
	r.Get("/healthz", healthHandler(holder, breaker))

	// WebSocket endpoint
	r.Get("/ws", hub.HandleWS)

	// API routes
	dhttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// SIGHUP reloads config and secrets without restarting.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			if err := holder.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
				continue
			}
			if err := vault.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("configuration reloaded")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// The server does not outlive the dispatch loop.
		defer cancel()
		return orch.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// healthHandler returns an http.HandlerFunc that reports liveness, the
// current effective configuration, and the registry breaker position.
func healthHandler(holder *config.Holder, breaker *resilience.Breaker) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Version  string `json:"version"`
		Provider string `json:"provider"`
		Registry string `json:"registry_circuit"`
		Mailbox  string `json:"mailbox"`
		Agents   int    `json:"agents"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		cfg := holder.Get()
		status := healthStatus{
			Status:   "ok",
			Version:  version,
			Provider: cfg.Registry.Provider,
			Registry: breaker.State(),
			Mailbox:  cfg.Mailbox.Base,
			Agents:   len(cfg.Agents),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}

// routingAgents converts configured workers to domain agents.
func routingAgents(agents []config.Agent) []agent.Agent {
	out := make([]agent.Agent, 0, len(agents))
	for _, a := range agents {
		out = append(out, agent.Agent{
			Name:     a.Name,
			ID:       a.ID,
			Mode:     agent.Mode(a.Mode),
			Keywords: a.Keywords,
		})
	}
	return out
}

// newRegistry builds the configured task registry provider. The API token
// comes from the vault unless the settings map already carries one.
func newRegistry(cfg *config.Config, vault *secrets.Vault) (taskregistry.Provider, error) {
	settings := make(map[string]string, len(cfg.Registry.Settings)+1)
	for k, v := range cfg.Registry.Settings {
		settings[k] = v
	}
	if settings["token"] == "" {
		settings["token"] = vault.Get("NOTION_TOKEN")
	}
	return taskregistry.New(cfg.Registry.Provider, settings)
}

// buildNotifications wires every configured notification channel, resolving
// secret-valued settings through the vault. A channel that fails to build is
// skipped, not fatal.
func buildNotifications(configs []config.Notifier, vault *secrets.Vault) *service.NotificationService {
	svc := service.NewNotificationService()
	for _, nc := range configs {
		settings := make(map[string]string, len(nc.Settings)+2)
		for k, v := range nc.Settings {
			settings[k] = v
		}
		fillSecret(settings, "webhook_url", vault, strings.ToUpper(nc.Type)+"_WEBHOOK_URL")
		fillSecret(settings, "password", vault, strings.ToUpper(nc.Type)+"_SMTP_PASSWORD")

		n, err := notifier.New(nc.Type, settings)
		if err != nil {
			// Factory errors can quote settings, which include webhook URLs.
			slog.Warn("notifier skipped", "type", nc.Type, "error", vault.RedactString(err.Error()))
			continue
		}
		svc.AddNotifier(n, nc.Events)
		slog.Info("notifier registered", "type", nc.Type)
	}
	return svc
}

func fillSecret(settings map[string]string, key string, vault *secrets.Vault, vaultKey string) {
	if settings[key] != "" {
		return
	}
	if v := vault.Get(vaultKey); v != "" {
		settings[key] = v
	}
}

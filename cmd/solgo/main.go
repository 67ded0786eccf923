package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cjeanneret/SolGo/internal/config"
	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/logic/control"
	"github.com/cjeanneret/SolGo/internal/mqttlink"
	"github.com/cjeanneret/SolGo/internal/observability"
	"github.com/cjeanneret/SolGo/internal/override"
	"github.com/cjeanneret/SolGo/internal/web"
)

// Bounds for the -tick_ms flag.
const (
	minTickMs = 100
	maxTickMs = 60 * 60 * 1000
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	tickMs := flag.Int("tick_ms", 0, "override delay between logic steps in ms (100-3600000)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if err := validateCLIOverrides(*tickMs); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, *tickMs)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Tick", cfg.Tick())

	var broadcaster *web.StatusBroadcaster
	if webPort.port() > 0 {
		broadcaster = web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	}

	debug.Step(1, "Initializing hardware")
	hw, err := newHardware(cfg)
	if err != nil {
		log.Fatalf("init hardware failed: %v", err)
	}
	defer func() {
		if err := hw.Close(); err != nil {
			log.Printf("closing hardware failed: %v", err)
		}
	}()

	debug.Step(2, "Initializing sensors")
	sens, feed := newSensors(cfg)

	debug.Step(3, "Initializing collaborators")
	runID := uuid.NewString()
	debug.Value("Run ID", runID)
	metrics := observability.NewMetrics()
	mailbox := override.NewMailbox()

	var link *mqttlink.Link
	if cfg.MQTT.Enabled {
		link = mqttlink.New(cfg.MQTT, mailbox, feed)
	}
	var hub *web.StateHub
	if broadcaster != nil {
		hub = web.NewStateHub(broadcaster)
	}
	sinks, err := newSinks(cfg, runID, link, hub)
	if err != nil {
		log.Fatalf("init telemetry failed: %v", err)
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			log.Printf("closing telemetry failed: %v", err)
		}
	}()

	debug.Step(4, "Building state machine")
	deps := newDeps(cfg, hw, sens, sinks.Fanout, metrics)
	if link != nil || hub != nil {
		deps.Overrides = mailbox
	}
	machine := control.NewMachine(thresholds(cfg), deps)
	if err := restoreSnapshot(machine, cfg.Defaults.SnapshotPath); err != nil {
		log.Printf("ignoring saved state: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return control.NewRunner(machine, cfg.Tick()).Run(gctx)
	})
	if link != nil {
		g.Go(func() error { return link.Run(gctx) })
	}
	if hub != nil {
		webAddr := fmt.Sprintf(":%d", webPort.port())
		handlers := web.NewHandlers(broadcaster, hub, mailbox, web.NewConfigView(cfg), cfg.Defaults.OverrideRatePerMin)
		srv := web.NewServer(webAddr, handlers, metrics, os.Stdout)
		g.Go(func() error { return srv.Run(gctx) })
	}

	debug.Section("Running")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("stopped: %v", err)
		return
	}
	debug.Info("Shut down cleanly")
}

// validateCLIOverrides checks that a non-zero -tick_ms is within range.
// Zero means "use config default".
func validateCLIOverrides(tickMs int) error {
	if tickMs != 0 && (tickMs < minTickMs || tickMs > maxTickMs) {
		return fmt.Errorf("tick_ms must be between %d and %d, got %d", minTickMs, maxTickMs, tickMs)
	}
	return nil
}

// applyOverrides mutates cfg with non-zero CLI values.
func applyOverrides(cfg *config.Config, tickMs int) {
	if tickMs > 0 {
		cfg.Defaults.TickMs = tickMs
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }

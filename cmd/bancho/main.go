package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gobancho/server/internal/auth"
	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/config"
	"github.com/gobancho/server/internal/geo"
	"github.com/gobancho/server/internal/handler"
	"github.com/gobancho/server/internal/metrics"
	"github.com/gobancho/server/internal/persist"
	"github.com/gobancho/server/internal/rpc"
	"github.com/gobancho/server/internal/scripting"
	"github.com/gobancho/server/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            gobancho  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m    osu! session & presence core in Go     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("GOBANCHO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Connect to PostgreSQL and run migrations
	printSection("database")

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()

	db, err := persist.NewDB(bootCtx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	if err := persist.RunMigrations(bootCtx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	userRepo := persist.NewUserRepo(db)

	// 4. Load data tables
	printSection("data")

	geoTable, err := geo.LoadTable(cfg.Geo.TablePath)
	if err != nil {
		return fmt.Errorf("load geo table: %w", err)
	}
	printStat("geo prefixes", geoTable.Count())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	state := bancho.NewState(cfg, m, log)
	if err := state.Channels.LoadSeed(cfg.Messages.ChannelSeedPath); err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	printStat("chat channels", state.Channels.Len())

	var luaEngine *scripting.Engine
	if cfg.Scripting.Dir != "" {
		luaEngine, err = scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer luaEngine.Close()
		printOK("lua chat commands loaded")
	}
	fmt.Println()

	// 5. Wire services
	logins := auth.NewService(state, userRepo, auth.BcryptVerifier{}, geoTable, log)

	deps := &handler.Deps{
		State:     state,
		Friends:   userRepo,
		Scripting: luaEngine,
		Log:       log,
	}
	registry := handler.NewRegistry(deps)
	handler.RegisterAll(registry)

	// 6. Background tasks and servers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reaper := bancho.NewReaper(state)
	go reaper.Run(ctx)

	errCh := make(chan error, 2)

	if cfg.RPC.Enabled {
		rpcSrv := rpc.NewServer(log)
		rpc.RegisterBancho(rpcSrv, rpc.NewLocalBancho(state, logins, registry))
		rpc.RegisterGeo(rpcSrv, geoTable)
		rpc.RegisterPasswords(rpcSrv, auth.BcryptVerifier{})

		ln, err := net.Listen("tcp", cfg.RPC.BindAddress)
		if err != nil {
			return fmt.Errorf("rpc listen: %w", err)
		}
		go func() { errCh <- rpcSrv.Serve(ctx, ln) }()
		printReady(fmt.Sprintf("rpc listening on %s", cfg.RPC.BindAddress))
	}

	webSrv := web.New(state, logins, registry, log)
	go func() { errCh <- webSrv.Run(ctx, cfg.Server.BindAddress) }()

	printSection("ready")
	printReady(fmt.Sprintf("bancho listening on %s", cfg.Server.BindAddress))
	fmt.Println()

	// 7. Wait for shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
		// Give the servers a moment to drain.
		time.Sleep(200 * time.Millisecond)
		log.Info("server stopped")
		return nil
	case err := <-errCh:
		cancel()
		return err
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/kui/internal/host"
	"github.com/GriffinCanCode/kui/internal/infrastructure/config"
	"github.com/GriffinCanCode/kui/internal/infrastructure/logging"
	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/infrastructure/server"
	"github.com/GriffinCanCode/kui/internal/page"
	"github.com/GriffinCanCode/kui/internal/shared/types"
	"github.com/GriffinCanCode/kui/internal/shell"
	"github.com/GriffinCanCode/kui/internal/upgrade"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kui: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override environment
	pagePath := flag.String("page", "", "HTML file to load after init")
	flag.StringVar(&cfg.Assets.Root, "assets", cfg.Assets.Root, "Asset root directory")
	flag.StringVar(&cfg.Assets.FilesDir, "files", cfg.Assets.FilesDir, "Root for the file bindings (disabled when empty)")
	flag.BoolVar(&cfg.Assets.Remote, "remote", cfg.Assets.Remote, "Resolve http(s) locators")
	flag.StringVar(&cfg.Window.Title, "title", cfg.Window.Title, "Window title")
	flag.IntVar(&cfg.Window.Width, "width", cfg.Window.Width, "Window width")
	flag.IntVar(&cfg.Window.Height, "height", cfg.Window.Height, "Window height")
	flag.BoolVar(&cfg.Server.Enabled, "serve", cfg.Server.Enabled, "Start the debug HTTP server")
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Debug server port")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
	defer logger.Sync()
	log := logger.Component("kui")

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting kui",
		zap.String("version", host.Version),
		zap.String("assets", cfg.Assets.Root),
		zap.Bool("serve", cfg.Server.Enabled),
	)

	hostCfg := host.Config{
		AssetsRoot: cfg.Assets.Root,
		Include:    cfg.Assets.Include,
		FilesRoot:  cfg.Assets.FilesDir,
	}
	if cfg.Assets.Remote {
		remote := host.DefaultRemoteOptions()
		hostCfg.Remote = &remote
	}
	hst, err := host.New(hostCfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to create host: %w", err)
	}
	defer hst.Close()
	if err := hst.Index(ctx); err != nil {
		return fmt.Errorf("failed to index assets: %w", err)
	}

	metrics := monitoring.NewMetrics()
	sh := shell.New(hst, shell.Options{
		Origin: cfg.Bridge.Origin,
		Upgrade: upgrade.Options{
			Timeout:     cfg.Bridge.UpgradeTimeout,
			MaxInFlight: cfg.Bridge.MaxInFlight,
		},
		Page: pageConfig(cfg.Page),
	}, logger.Logger, metrics)

	args := types.WindowArgs{Title: cfg.Window.Title, Width: cfg.Window.Width, Height: cfg.Window.Height}
	if err := sh.Init(ctx, args); err != nil {
		return fmt.Errorf("failed to init shell: %w", err)
	}

	if *pagePath != "" {
		markup, err := os.ReadFile(*pagePath)
		if err != nil {
			return fmt.Errorf("failed to read page: %w", err)
		}
		if err := sh.SetPageBytes(ctx, markup); err != nil {
			return fmt.Errorf("failed to load page: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sh.Run(gctx)
	})
	if cfg.Server.Enabled {
		srv := server.NewServer(cfg.Server, sh, logger.Logger, metrics)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	err = g.Wait()
	log.Info("Shut down", zap.Error(err))
	return err
}

func pageConfig(cfg config.PageConfig) page.Config {
	pc := page.DefaultConfig()
	pc.Timeout = cfg.ScriptTimeout
	pc.EnableConsole = cfg.EnableConsole
	return pc
}

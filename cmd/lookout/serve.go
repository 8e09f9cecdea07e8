package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/entrhq/lookout/pkg/agent/tools"
	"github.com/entrhq/lookout/pkg/browser"
	"github.com/entrhq/lookout/pkg/config"
	"github.com/entrhq/lookout/pkg/logging"
	"github.com/entrhq/lookout/pkg/loopback"
	"github.com/entrhq/lookout/pkg/project"
	"github.com/entrhq/lookout/pkg/security/navigation"
	"github.com/entrhq/lookout/pkg/security/workspace"
	browsertools "github.com/entrhq/lookout/pkg/tools/browser"
	"github.com/entrhq/lookout/pkg/webview"
	"github.com/entrhq/lookout/pkg/webview/devtools"
	"github.com/entrhq/lookout/pkg/webview/driver"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the loopback server and publish its port for the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyServeOverrides(v)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, v.GetString("project"), v.GetStringSlice("allow-project"))
		},
	}

	flags := cmd.Flags()
	flags.StringP("project", "p", ".", "project directory the port is published to")
	flags.Int("port", 0, "loopback port (0 picks a free port)")
	flags.String("backend", "", "browser backend: playwright or devtools")
	flags.Bool("headless", false, "run the browser without a window")
	flags.StringSlice("allow-project", nil, "additional project directories callers may open pages for")
	return cmd
}

// applyServeOverrides copies explicitly set flags and LOOKOUT_* variables
// over the loaded sections.
func applyServeOverrides(v *viper.Viper) {
	if v.IsSet("port") {
		config.GetServer().SetPort(v.GetInt("port"))
	}
	if backend := v.GetString("backend"); backend != "" {
		config.GetBrowser().SetBackend(backend)
	}
	if v.IsSet("headless") && v.GetBool("headless") {
		config.GetBrowser().SetHeadless(true)
	}
}

func serve(ctx context.Context, projectPath string, extraProjects []string) error {
	projectPath, err := filepath.Abs(projectPath)
	if err != nil {
		return fmt.Errorf("invalid project path: %w", err)
	}

	browserSection := config.GetBrowser()
	serverSection := config.GetServer()
	if err := browserSection.Validate(); err != nil {
		return fmt.Errorf("invalid browser configuration: %w", err)
	}
	if err := serverSection.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}
	bs := browserSection.Settings()
	ss := serverSection.Settings()

	logger, err := logging.NewLogger("lookout")
	if err != nil {
		logger.Warnf("file logging unavailable: %v", err)
	}
	defer logger.Close()

	guard, err := workspace.NewGuard(projectPath, extraProjects...)
	if err != nil {
		return err
	}

	gate, err := navigation.NewGate(bs.AllowedHosts, bs.DeniedHosts)
	if err != nil {
		return err
	}

	factory, shutdown := newFactory(bs)
	defer func() {
		if err := shutdown(); err != nil {
			logger.Warnf("browser backend shutdown: %v", err)
		}
	}()

	lockMode := browser.LockAdvisory
	if bs.StrictLock {
		lockMode = browser.LockStrict
	}

	hub := loopback.NewHub()
	b := browser.New(factory, project.Confine(project.SyncFileResolver{}, guard),
		browser.WithLogger(logger),
		browser.WithEventEmitter(hub.Publish),
		browser.WithGate(gate),
		browser.WithLockMode(lockMode),
		browser.WithHeadless(bs.Headless),
		browser.WithTimeouts(bs.ExtractTimeout, bs.ActionTimeout),
		browser.WithPollInterval(bs.PollInterval),
	)

	registry := tools.NewRegistry()
	if err := browsertools.NewToolRegistry(b, projectPath).Register(registry); err != nil {
		return err
	}

	srv := loopback.New(b, loopback.Config{
		Host:         "127.0.0.1",
		Port:         ss.Port,
		RateLimit:    ss.RateLimit,
		RateBurst:    ss.RateBurst,
		MaxBodyBytes: ss.MaxBodyBytes,
		AllowOrigins: ss.AllowOrigins,
		ProjectPath:  projectPath,
	}, loopback.WithLogger(logger), loopback.WithTools(registry), loopback.WithHub(hub))

	port, err := srv.Listen()
	if err != nil {
		return err
	}
	if err := project.WritePort(projectPath, uint16(port)); err != nil {
		return err
	}
	logger.Infof("published loopback port %d to %s", port, project.SyncPath(projectPath))
	fmt.Fprintf(os.Stderr, "lookout listening on 127.0.0.1:%d (project %s)\n", port, projectPath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return b.Close(context.Background())
	})
	return g.Wait()
}

// newFactory builds the configured backend and a func that releases it.
func newFactory(bs config.BrowserSettings) (webview.Factory, func() error) {
	switch bs.Backend {
	case config.BackendDevTools:
		return devtools.NewFactory(), func() error { return nil }
	default:
		engine := driver.NewEngine(driver.WithInstall(bs.InstallDriver))
		return engine, engine.Shutdown
	}
}

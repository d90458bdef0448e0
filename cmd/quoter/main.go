// Command quoter runs the quote generation agent.
//
// Usage:
//
//	quoter serve --config quoter.yaml
//	quoter serve --port 9090
//	quoter card --config quoter.yaml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/quoter/pkg/config"
	"github.com/kadirpekel/quoter/pkg/logger"
	"github.com/kadirpekel/quoter/pkg/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the agent server."`
	Card    CardCmd    `cmd:"" help:"Print the agent card as JSON."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("quoter version %s\n", version)
	return nil
}

// ServeCmd starts the agent server.
type ServeCmd struct {
	Port  int  `help:"Port to listen on (overrides config)."`
	Watch bool `help:"Watch config file for changes and restart on reload."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	for {
		cfg, loader, err := loadConfig(cli)
		if err != nil {
			return err
		}
		if c.Port != 0 {
			cfg.Server.Port = c.Port
		}

		srv, err := server.New(ctx, cfg)
		if err != nil {
			return err
		}

		runCtx, stopRun := context.WithCancel(ctx)

		reloaded := false
		if c.Watch && loader != nil {
			loader.SetOnChange(func(next *config.Config) error {
				slog.Info("Configuration changed, restarting server")
				reloaded = true
				stopRun()
				return nil
			})
			go func() {
				if err := loader.Watch(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Warn("Config watch stopped", "error", err)
				}
			}()
		}

		err = srv.Run(runCtx)
		stopRun()
		if err != nil {
			return err
		}
		if !reloaded || ctx.Err() != nil {
			return nil
		}
	}
}

// CardCmd prints the agent card derived from the configuration.
type CardCmd struct{}

func (c *CardCmd) Run(cli *CLI) error {
	cfg, _, err := loadConfig(cli)
	if err != nil {
		return err
	}

	card := server.BuildAgentCard(cfg)
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(card)
}

func loadConfig(cli *CLI) (*config.Config, *config.Loader, error) {
	if cli.Config == "" {
		return config.Default(), nil, nil
	}

	loader, err := config.NewLoader(cli.Config)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

func main() {
	_ = config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("quoter"),
		kong.Description("A2A quote generation agent"),
		kong.UsageOnError(),
	)

	logger.Init(logger.ParseLevel(cli.LogLevel), os.Stderr, cli.LogFormat)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

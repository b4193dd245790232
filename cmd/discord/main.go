// cmd/discord/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/keshon/argconv/internal/commands"
	"github.com/keshon/argconv/internal/config"
	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/internal/discord"
	"github.com/keshon/argconv/internal/logging"
	"github.com/keshon/argconv/internal/manifest"
	"github.com/keshon/argconv/internal/parser"
	"github.com/keshon/argconv/internal/storage"
	"github.com/keshon/argconv/pkg/cmd"
	"github.com/keshon/argconv/pkg/jobmgr"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("discord bot error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("discord bot exited cleanly")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting argconv bot", zap.String("prefix", cfg.CommandPrefix))

	var m *manifest.Manifest
	if cfg.ManifestPath != "" {
		var err error
		if m, err = manifest.Load(cfg.ManifestPath); err != nil {
			return err
		}
		logger.Info("loaded manifest", zap.String("path", cfg.ManifestPath), zap.Int("commands", len(m.Commands)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bot, err := discord.NewBot(cfg, cmd.DefaultRegistry, logger)
	if err != nil {
		return err
	}

	var store *storage.Storage
	if cfg.DataFile != "" {
		if store, err = storage.New(cfg.DataFile, logger); err != nil {
			return err
		}
		defer store.Close()
	}

	jobLog := logger.Named("jobs")
	jobs := jobmgr.NewManager(func(status string) {
		jobLog.Debug("job status", zap.String("status", status))
	})
	defer jobs.StopAll()

	compiler := parser.NewCompiler(convert.NewRegistry(), logger)
	cmds := commands.New(bot.Session(), jobs, logger)
	if err := cmds.Register(cmd.DefaultRegistry, compiler, m); err != nil {
		return err
	}
	if store != nil {
		cmds.UseStore(store)
		n, err := cmds.Restore()
		if err != nil {
			return err
		}
		logger.Info("restored reminders", zap.String("file", cfg.DataFile), zap.Int("reminders", n))
	}
	logger.Info("commands ready", zap.Int("commands", len(cmd.DefaultRegistry.GetAll())), zap.Int("parsers", compiler.Len()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Run(ctx)
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		logger.Info("received signal, shutting down", zap.Stringer("signal", s))
		cancel()
		return <-errCh
	case err := <-errCh:
		return err
	}
}

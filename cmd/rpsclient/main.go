// rpsclient is a line-oriented console for the rock-paper-scissors server.
// Usage: go run ./cmd/rpsclient -config configs/client.yaml -nick alice
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/rps-client/internal/config"
	"github.com/rickgao/rps-client/internal/database"
	"github.com/rickgao/rps-client/internal/journal"
	"github.com/rickgao/rps-client/internal/protocol"
	"github.com/rickgao/rps-client/internal/session"
	"github.com/rickgao/rps-client/internal/version"
)

const appName = "rpsclient"

func main() {
	configPath := flag.String("config", "", "path to config file (built-in defaults when empty)")
	nick := flag.String("nick", "", "nickname, overrides player.nickname")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rpsclient:", err)
		os.Exit(1)
	}
	if *nick != "" {
		cfg.Player.Nickname = *nick
	}
	if strings.TrimSpace(cfg.Player.Nickname) == "" {
		fmt.Fprintln(os.Stderr, "rpsclient: a nickname is required (-nick or player.nickname)")
		os.Exit(2)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting rpsclient", append(version.LogAttrs(), "config", *configPath)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rpsclient failed", "error", err)
		os.Exit(1)
	}
	logger.Info("rpsclient stopped")
}

func loadConfig(path string) (*config.ClientConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadAndValidate(path)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func run(ctx context.Context, cfg *config.ClientConfig, logger *slog.Logger) error {
	out := newPrinter(os.Stdout)

	opts := []session.Option{session.WithListener(out.listener())}

	if cfg.Journal.Enabled {
		logger.Info("connecting journal database",
			"host", cfg.Journal.Database.Host,
			"port", cfg.Journal.Database.Port,
			"database", cfg.Journal.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Journal.Database, appName)
		if err != nil {
			return err
		}
		defer pool.Close()

		sink := journal.NewPostgresSink(pool)
		if err := sink.EnsureSchema(ctx); err != nil {
			return err
		}
		opts = append(opts, session.WithJournal(journal.NewWriter(session.JournalConfig(cfg), sink, logger)))
	}

	s := session.New(cfg, logger, opts...)
	for _, cmd := range protocol.Commands() {
		if cmd == protocol.CmdPing || cmd == protocol.CmdRoom {
			continue
		}
		s.Subscribe(cmd, out.event)
	}

	if err := s.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := s.Close(shutdownCtx); err != nil {
			logger.Warn("session close", "error", err)
		}
	}()

	if err := s.Connect(ctx); err != nil {
		return err
	}
	if err := s.Codec().Hello(cfg.Player.Nickname); err != nil {
		return err
	}

	lines := make(chan string)
	go scanLines(os.Stdin, lines)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readCommands(gctx, lines, sessionActions{Codec: s.Codec(), s: s}, out)
	})

	err := g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

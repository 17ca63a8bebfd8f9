package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/shobdo/internal/cache"
	"github.com/dgnsrekt/shobdo/internal/history"
	"github.com/dgnsrekt/shobdo/internal/server"
	"github.com/dgnsrekt/shobdo/internal/tts"
	"github.com/dgnsrekt/shobdo/internal/voices"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve the speech API over HTTP",
	Long:    paragraph(fmt.Sprintf("\n%s speech synthesis, the voices and the history over HTTP. Metrics are exported on /metrics.", keyword("Serve"))),
	Example: paragraph("shobdo serve\nshobdo serve --addr :8080 --engine tone"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "shobdo",
		})
		if cfg.Debug {
			logger.SetLevel(log.DebugLevel)
		}

		engine, err := newEngine(cfg, logger)
		if err != nil {
			return err
		}
		engine = withReplyCache(engine, cfg.Cache)
		defer engine.Close() //nolint:errcheck

		var store *history.Store
		if cfg.History.Enabled {
			store, err = openHistory()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck
		}

		srv, err := server.New(server.Config{
			Synthesizer: tts.NewSynthesizer(engine, tts.WithFormat(cfg.Audio.SampleRate, cfg.Audio.Channels)),
			Voices:      voices.Default(),
			History:     store,
			Logger:      logger,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cached, ok := engine.(*cache.Engine); ok {
			logger.Warn("Reply cache is on; repeated requests replay cached audio", "max_size_mb", cfg.Cache.MaxSizeMB, "ttl", cfg.Cache.TTL)
			go pruneReplies(ctx, cached, cfg.Cache.TTL, logger)
		}

		errc := make(chan error, 1)
		go func() {
			logger.Info("Listening", "addr", cfg.Server.Addr, "engine", engine.GetInfo().Name, "history", store != nil)
			errc <- srv.Listen(cfg.Server.Addr)
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, 127.0.0.1:8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"ledgerchat/internal/knowledge"
	"ledgerchat/internal/logging"
	"ledgerchat/internal/server"
	"ledgerchat/internal/session"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchDir string

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the knowledge base, chat, suggestion and mind map endpoints.

With --watch-dir, files dropped into the directory are added to the knowledge
base as general documents of the active company.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&watchDir, "watch-dir", "", "Directory whose new files are ingested as documents")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := watchDir
	if dir == "" {
		dir = cfg.Knowledge.WatchDir
	}

	var watcher *knowledge.Watcher
	if dir != "" {
		w, err := knowledge.NewWatcher(store, nil)
		if err != nil {
			return err
		}
		watcher = w
	}

	srv := server.New(cfg, store, service, session.New(), tracker)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if watcher != nil {
		logging.Boot("watching %s for documents", dir)
		g.Go(func() error {
			if err := watcher.Run(ctx, dir); err != nil && ctx.Err() == nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

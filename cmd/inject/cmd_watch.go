package main

import (
	"collectioninject/internal/collection"
	"collectioninject/internal/config"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchCmd re-syncs whenever the manifest changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync now, then again every time the manifest is saved",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	w, err := startWatcher(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), styles.muted.Render("watching "+configPath+" (ctrl+c to stop)"))
	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	return nil
}

// startWatcher performs the initial sync and starts watching the manifest.
// A failing initial sync is reported but does not stop the watcher, so a
// broken manifest can be fixed while it runs.
func startWatcher(ctx context.Context, out io.Writer) (*collection.Watcher, error) {
	debounce, err := manifest.Watch.GetDebounce()
	if err != nil {
		return nil, err
	}

	report := func(res *collection.Result, err error) {
		if err != nil {
			fmt.Fprintln(out, styles.failure.Render("sync failed: "+err.Error()))
			return
		}
		fmt.Fprint(out, renderReport(res, showDiff))
	}

	w, err := collection.NewWatcher(configPath, newInjector(), reloadManifest, report, debounce)
	if err != nil {
		return nil, err
	}
	if _, err := w.Sync(ctx); err != nil {
		logger.Warn("Initial sync failed", zap.Error(err))
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}

// reloadManifest re-reads the manifest on every change. The project layout is
// fixed for the lifetime of the watcher.
func reloadManifest(ctx context.Context) ([]collection.Request, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", configPath, err)
	}
	return cfg.Requests(), nil
}

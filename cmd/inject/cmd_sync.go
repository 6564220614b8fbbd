package main

import (
	"collectioninject/internal/collection"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrDrift is returned by check when the config module is not up to date.
var ErrDrift = errors.New("content config is out of date with the manifest")

var showDiff bool

// syncCmd applies every collection in the manifest
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Register every collection listed in the manifest",
	Long: `Applies the manifest as one batch: directories are scaffolded, then
src/content/config.ts is loaded once, edited and written at most once.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

// checkCmd reports drift without writing
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Exit non-zero when sync would change the project",
	Long: `Runs sync as a dry run and prints the diff it would apply.
Useful in CI to make sure the manifest and the content config agree.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := syncManifest(ctx, newInjector())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderReport(res, showDiff || dryRun))
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	wasDry := dryRun
	dryRun = true
	defer func() { dryRun = wasDry }()

	res, err := syncManifest(ctx, newInjector())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderReport(res, true))
	if res.Changed || res.Scaffold.CreatedConfig || len(res.Scaffold.CreatedDirs) > 0 {
		return ErrDrift
	}
	return nil
}

func syncManifest(ctx context.Context, inj *collection.Injector) (*collection.Result, error) {
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", configPath, err)
	}
	reqs := manifest.Requests()
	logger.Info("Syncing manifest", zap.String("path", configPath), zap.Int("collections", len(reqs)))
	return inj.Apply(ctx, reqs...)
}

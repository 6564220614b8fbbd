package main

import (
	"collectioninject/internal/config"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var addFlags struct {
	module    string
	export    string
	suffix    string
	kind      string
	schema    string
	seed      string
	overwrite bool
	save      bool
}

// addCmd registers a single collection given on the command line
var addCmd = &cobra.Command{
	Use:   "add <collection>",
	Short: "Register one collection",
	Long: `Registers a single collection without touching the rest of the manifest.

Examples:
  inject add blog --module my-theme/collections
  inject add docs --module @astrojs/starlight/schema --export docsSchema --overwrite
  inject add authors --module ./schemas --export authorSchema --type data --save`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entry := config.CollectionConfig{
		Name:      args[0],
		Module:    addFlags.module,
		Export:    addFlags.export,
		Suffix:    addFlags.suffix,
		Type:      addFlags.kind,
		Overwrite: addFlags.overwrite,
		Seed:      addFlags.seed,
		Schema:    addFlags.schema,
	}
	req := entry.Request()
	logger.Debug("Adding collection", zap.String("collection", req.Collection), zap.String("module", req.Module))

	res, err := newInjector().Apply(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderReport(res, showDiff || dryRun))

	if addFlags.save && !dryRun {
		if err := saveEntry(entry); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", styles.muted.Render("recorded "+entry.Name+" in "+configPath))
	}
	return nil
}

// saveEntry adds entry to the manifest file, replacing an entry of the same name.
func saveEntry(entry config.CollectionConfig) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	replaced := false
	for i := range cfg.Collections {
		if cfg.Collections[i].Name == entry.Name {
			cfg.Collections[i] = entry
			replaced = true
		}
	}
	if !replaced {
		cfg.Collections = append(cfg.Collections, entry)
	}
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to update manifest: %w", err)
	}
	logger.Info("Manifest updated", zap.String("path", configPath), zap.String("collection", entry.Name))
	return nil
}

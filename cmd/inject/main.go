package main

import (
	"collectioninject/internal/collection"
	"collectioninject/internal/config"
	"collectioninject/internal/logging"
	"collectioninject/internal/scaffold"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	rootDir    string
	srcDir     string
	dryRun     bool
	noOrganize bool
	timeout    time.Duration

	// Logger
	logger *zap.Logger

	// Resolved by setup
	manifest *config.Config
	layout   scaffold.Layout
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "inject",
	Short: "Register content collections in an Astro site",
	Long: `inject keeps src/content/config.ts in step with a list of content collections.

For every collection it makes sure the content directory exists (optionally
seeded from a template), the schema is imported under a name that does not
clash with anything already declared, and the exported collections object
holds a defineCollection(...) entry for it. Running it twice changes nothing.

Collections come from the manifest (inject.yaml or inject.toml) or from the
add command's flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Manifest file (YAML or TOML)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", "Project root (default: project.root from the manifest)")
	rootCmd.PersistentFlags().StringVar(&srcDir, "src-dir", "", "Source directory holding content/ (default: src)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Report what would change without touching the project")
	rootCmd.PersistentFlags().BoolVar(&noOrganize, "no-organize", false, "Leave unused and unsorted imports alone")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Operation timeout")

	// Add flags
	addCmd.Flags().StringVarP(&addFlags.module, "module", "m", "", "Module the schema is imported from (required)")
	addCmd.Flags().StringVarP(&addFlags.export, "export", "e", collection.DefaultExport, "Exported schema name, or \"default\"")
	addCmd.Flags().StringVar(&addFlags.suffix, "suffix", "", "Suffix for a default-exported schema's local name (default: Schema)")
	addCmd.Flags().StringVarP(&addFlags.kind, "type", "t", "", "Collection type: content or data")
	addCmd.Flags().StringVar(&addFlags.schema, "schema", "", "How the schema is referenced: call or reference")
	addCmd.Flags().StringVar(&addFlags.seed, "seed", "", "Directory copied into a newly created collection")
	addCmd.Flags().BoolVar(&addFlags.overwrite, "overwrite", false, "Bring an existing entry in line with the request")
	addCmd.Flags().BoolVar(&addFlags.save, "save", false, "Record the collection in the manifest")
	addCmd.MarkFlagRequired("module")

	// Diff output
	addCmd.Flags().BoolVar(&showDiff, "diff", false, "Print the unified diff of the config module")
	syncCmd.Flags().BoolVar(&showDiff, "diff", false, "Print the unified diff of the config module")
	watchCmd.Flags().BoolVar(&showDiff, "diff", false, "Print the unified diff after every sync")

	// Add commands to root
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the manifest, applies flag overrides and starts file logging
// under the project root.
func setup() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if srcDir != "" {
		cfg.Project.SrcDir = srcDir
	}

	var root string
	if rootDir != "" {
		root, err = filepath.Abs(rootDir)
	} else {
		root, err = cfg.Project.ResolveRoot(configPath)
	}
	if err != nil {
		return err
	}

	l, err := scaffold.NewLayout(root, cfg.Project.SrcDir)
	if err != nil {
		return err
	}
	manifest, layout = cfg, l

	if err := logging.Initialize(root, cfg.Logging.ToLogging()); err != nil {
		return fmt.Errorf("failed to initialize file logging: %w", err)
	}
	logging.SetConsole(logger)
	if err := logging.InitAudit(); err != nil {
		logger.Warn("audit trail disabled", zap.Error(err))
	}
	logging.Boot("project root %s, manifest %s", root, configPath)
	return nil
}

func newInjector() *collection.Injector {
	return collection.NewInjector(layout, collection.Options{
		DryRun:          dryRun,
		OrganizeImports: manifest.Project.OrganizeImports && !noOrganize,
	})
}

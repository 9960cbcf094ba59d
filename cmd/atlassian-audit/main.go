package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/config"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/registry"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/engine"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/logger"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/sink"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/state"

	// Import all available source adapters to register them
	_ "github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/sources/confluence"
	_ "github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/sources/jira"
)

var version = "0.1.0"

// scratchMaxAge is how long leftover scratch files from killed runs survive
const scratchMaxAge = 5 * time.Minute

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var (
		unread       bool
		limit        int
		settingsPath string
	)

	root := &cobra.Command{
		Use:   "atlassian-audit",
		Short: "Incremental Atlassian audit-log exporter",
		Long: `atlassian-audit exports audit-log events from Atlassian cloud APIs into a
line-delimited JSON stream on stdout, advancing a durable watermark so each
event is emitted exactly once across repeated invocations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&unread, "unread", "u", false, "export events but keep them marked as unread")
	pf.IntVarP(&limit, "limit", "l", engine.DefaultLimit, "max number of records to fetch")
	pf.StringVar(&settingsPath, "settings", "", "optional YAML settings file")
	pf.String("config-dir", "", "directory holding credential config files")
	pf.String("state-dir", "", "directory holding per-vendor state files")
	pf.String("scratch-dir", "", "directory for per-run scratch logs")
	pf.String("log-level", "", "stderr diagnostic log level")
	pf.Int("page-size", 0, "records requested per API page")

	_ = viper.BindPFlag("config_dir", pf.Lookup("config-dir"))
	_ = viper.BindPFlag("state_dir", pf.Lookup("state-dir"))
	_ = viper.BindPFlag("scratch_dir", pf.Lookup("scratch-dir"))
	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("page_size", pf.Lookup("page-size"))
	viper.SetEnvPrefix("ATLASSIAN_AUDIT")
	viper.AutomaticEnv()

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("atlassian-audit v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available source adapters",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range registry.ListSources() {
				fmt.Println(name)
			}
		},
	})

	for _, name := range registry.ListSources() {
		name := name
		root.AddCommand(&cobra.Command{
			Use:   name,
			Short: fmt.Sprintf("Export %s audit logs", name),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runExtraction(cmd.Context(), name, unread, limit, settingsPath)
			},
		})
	}

	// The downstream consumer discards all output on a non-zero exit, so
	// failures travel as structured error lines on stdout instead of the
	// exit status.
	_ = root.Execute()
}

func runExtraction(ctx context.Context, name string, unread bool, limit int, settingsPath string) error {
	settings := config.DefaultSettings()
	var settingsErr error
	if settingsPath != "" {
		settingsErr = config.LoadSettings(settingsPath, &settings)
	}

	// Flags and environment override file settings
	if v := viper.GetString("config_dir"); v != "" {
		settings.ConfigDir = v
	}
	if v := viper.GetString("state_dir"); v != "" {
		settings.StateDir = v
	}
	if v := viper.GetString("scratch_dir"); v != "" {
		settings.ScratchDir = v
	}
	if v := viper.GetString("log_level"); v != "" {
		settings.LogLevel = v
	}
	if v := viper.GetInt("page_size"); v > 0 {
		settings.PageSize = v
	}

	_ = logger.Init(logger.Config{Level: settings.LogLevel, Encoding: "json"})
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	if settingsErr != nil {
		w := sink.NewWriter(os.Stdout, "", name, "", log)
		w.Fatal(fmt.Sprintf("script failed: %v", settingsErr))
		return nil
	}

	creds, err := config.LoadCredentials(
		filepath.Join(settings.ConfigDir, "config.json"),
		filepath.Join(settings.ConfigDir, name+"-config.json"))
	if err != nil {
		w := sink.NewWriter(os.Stdout, "", name, "", log)
		w.Fatal(fmt.Sprintf("script failed: %v", err))
		return nil
	}

	adapter, err := registry.CreateSource(name, creds)
	if err != nil {
		w := sink.NewWriter(os.Stdout, "", name, creds.CloudID, log)
		w.Fatal(fmt.Sprintf("script failed: %v", err))
		return nil
	}

	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	ctx = context.WithValue(ctx, logger.SourceKey, name)
	log = logger.WithContext(ctx)

	w := sink.NewWriter(os.Stdout,
		sink.ScratchPath(settings.ScratchDir, name, runID),
		adapter.Namespace(), creds.CloudID, log)
	defer func() {
		if err := w.Close(); err != nil {
			log.Warn("scratch cleanup failed", zap.Error(err))
		}
	}()

	sink.CleanupScratch(settings.ScratchDir, name, scratchMaxAge, w)

	store := state.NewFileStore(filepath.Join(settings.StateDir, name+"-state.json"))
	eng := engine.New(adapter, store, w, engine.Config{
		PageSize:        settings.PageSize,
		MaxRetries:      settings.MaxRetries,
		RequestTimeout:  settings.RequestTimeout,
		RateLimitPerSec: settings.RateLimitPerSec,
	}, log)

	if _, err := eng.Execute(ctx, engine.Options{
		KeepUnread: unread,
		Limit:      limit,
		RunID:      runID,
	}); err != nil {
		// Already reported as a fatal status line; exit stays successful.
		log.Error("extraction failed", zap.Error(err))
	}
	return nil
}

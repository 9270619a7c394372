// Package cli wires the choirdesk commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/config"
	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/storage"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
}

// NewRootCommand creates the choirdesk root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "choirdesk",
		Short:         "Parish choir administration",
		Long:          "Roster, schedule, repertoire, ledger and attendance for a parish choir, with the liturgical ordo.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.LogLevel != "" {
				appLog.SetLevel(appLog.ParseLevel(opts.LogLevel))
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", defaultConfigPath(), "path to config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional .env file with CHOIRDESK_* overrides")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error); overrides config")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewOrdoCommand(opts))
	cmd.AddCommand(NewCaptureCommand(opts))
	cmd.AddCommand(NewImportICSCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "choirdesk.yaml"
	}
	return filepath.Join(dir, "choirdesk", "config.yaml")
}

// loadConfig reads the config file, overlays the environment and applies
// the log level. --log-level wins over the file.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", o.ConfigPath, err)
	}
	if err := cfg.ApplyEnv(o.EnvFile); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	level := cfg.LogLevel
	if o.LogLevel != "" {
		level = o.LogLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))
	return cfg, nil
}

// openBackend picks the hosted backend when it is configured and the local
// snapshot file otherwise.
func openBackend(cfg *config.Config) (storage.Backend, error) {
	if cfg.Storage.Remote() {
		appLog.Info("using hosted storage", "url", cfg.Storage.SupabaseURL)
		return storage.NewRemote(storage.RemoteConfig{
			URL:    cfg.Storage.SupabaseURL,
			APIKey: cfg.Storage.SupabaseKey,
			Schema: cfg.Storage.Schema,
		})
	}
	appLog.Warn("hosted storage not configured, working offline", "path", cfg.Storage.LocalPath)
	return storage.OpenLocal(cfg.Storage.LocalPath)
}

func location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

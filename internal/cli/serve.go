package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/assistant"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/auth"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/config"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/ics"
	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/store"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/web"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "HTTP listen address (overrides config if set)")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	loc, err := location(cfg.Timezone)
	if err != nil {
		return err
	}

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"feeds", len(cfg.Feeds),
		"remote_storage", cfg.Storage.Remote(),
		"assistant", cfg.Assistant.APIKey != "",
		"accounts", len(cfg.Auth.Accounts),
	)
	if cfg.Auth.SharedSecret == config.DefaultSharedSecret {
		appLog.Warn("auth uses the default shared password; set CHOIRDESK_SHARED_SECRET")
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	st := store.New(backend)
	defer st.Close()

	// A partial load is not fatal; the affected screens start empty.
	if err := st.Load(ctx); err != nil {
		appLog.Error("initial load incomplete", err)
	}
	if release, err := st.Watch(ctx); err != nil {
		appLog.Error("change feed unavailable", err)
	} else {
		defer release()
	}

	var gen assistant.Generator
	if cfg.Assistant.APIKey != "" {
		gen = assistant.NewClient(cfg.Assistant, nil)
	}

	var importer *ics.Importer
	if len(cfg.Feeds) > 0 {
		importer = ics.NewImporter(ics.NewFetcher(cfg.CacheDir, nil), st, cfg.Feeds, loc)
		stopCron, err := importer.Start(ctx, cfg.RefreshCron)
		if err != nil {
			return err
		}
		defer stopCron()
		go func() {
			if _, err := importer.Refresh(ctx); err != nil {
				appLog.Error("initial feed refresh failed", err)
			}
		}()
	}

	srv := web.NewServer(web.Deps{
		Config:    cfg,
		Store:     st,
		Gate:      auth.NewGate(cfg.Auth),
		Generator: gen,
		Importer:  importer,
	})
	err = srv.Run(ctx)
	appLog.Info("choirdesk exiting")
	return err
}

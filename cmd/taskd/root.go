package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaeltuccillo/taskd/internal/api"
	"github.com/michaeltuccillo/taskd/internal/config"
	"github.com/michaeltuccillo/taskd/internal/logging"
	"github.com/michaeltuccillo/taskd/internal/session"
	"github.com/michaeltuccillo/taskd/internal/store"
)

type rootOptions struct {
	ConfigPath string
	Dev        bool
}

// runtime is what every subcommand needs once flags are parsed.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:           "taskd",
		Short:         "taskd - task tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, opts.Dev)
			if err != nil {
				return err
			}
			rt.cfg, rt.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.Dev, "dev", false, "human-readable development logging")

	cmd.AddCommand(newServeCommand(rt))
	cmd.AddCommand(newMigrateCommand(rt))

	return cmd
}

func openStore(rt *runtime) (*store.Store, error) {
	return store.Open(store.Options{
		Driver: rt.cfg.DBDriver,
		DSN:    rt.cfg.DatabaseURL,
		Log:    logging.StdLog(rt.logger, "gorm"),
	})
}

func newMigrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rt)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			rt.logger.Info("[DB] migrated", zap.String("driver", rt.cfg.DBDriver))
			return nil
		},
	}
}

func newServeCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt)
		},
	}
}

func serve(ctx context.Context, rt *runtime) error {
	cfg, logger := rt.cfg, rt.logger

	st, err := openStore(rt)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("[DB] close", zap.Error(err))
		}
	}()
	logger.Info("[DB] connected", zap.String("driver", cfg.DBDriver))

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	sessions := session.New(session.Options{
		CookieName: cfg.Cookie.Name,
		Secure:     cfg.Cookie.Secure,
		Domain:     cfg.Cookie.Domain,
		SameSite:   cfg.Cookie.SameSite,
		Secret:     cfg.SessionSecret,
	}, st)

	srv := api.New(st, sessions, logger, api.Options{
		Origins:    cfg.Origins(),
		SignInPath: cfg.SignInPath,
		BcryptCost: cfg.BcryptCost,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.StdLog(logger, "http"),
	}

	logger.Info("API listening",
		zap.String("addr", httpSrv.Addr),
		zap.Strings("cors_origins", cfg.Origins()),
		zap.Bool("signed_sessions", sessions.Signed()))
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"posservice/pkg/sale/infrastructure/mysql"
)

func serviceCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "service",
		Usage: "serve the REST API",
		Action: func(c *cli.Context) error {
			cfg, err := parseConfig(logger)
			if err != nil {
				return err
			}

			cont, err := newContainer(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer cont.Close(logger)

			return serve(c.Context, cfg, cont.router, logger)
		},
	}
}

func migrateCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations",
		Action: func(c *cli.Context) error {
			cfg, err := parseConfig(logger)
			if err != nil {
				return err
			}
			if cfg.Storage != storageMySQL {
				return errors.Errorf("migrations need %s storage, got %s", storageMySQL, cfg.Storage)
			}

			if err := mysql.Migrate(c.Context, cfg.dsn()); err != nil {
				return err
			}
			logger.WithField("database", cfg.DBName).Info("migrations applied")
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config, router http.Handler, logger *logrus.Logger) error {
	srv := &http.Server{
		Addr:              cfg.ServeRESTAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	killSignalChan := getKillSignalChan()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("address", cfg.ServeRESTAddress).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "failed to serve")
		}
		return nil
	})
	g.Go(func() error {
		waitForKillSignal(ctx, killSignalChan, logger)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return errors.Wrap(srv.Shutdown(shutdownCtx), "failed to shut down")
	})
	return g.Wait()
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func waitForKillSignal(ctx context.Context, killSignalChan <-chan os.Signal, logger logrus.FieldLogger) {
	select {
	case killSignal := <-killSignalChan:
		switch killSignal {
		case os.Interrupt:
			logger.Info("got SIGINT...")
		case syscall.SIGTERM:
			logger.Info("got SIGTERM...")
		}
	case <-ctx.Done():
	}
}

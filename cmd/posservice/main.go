package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const appID = "posservice"

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	app := &cli.App{
		Name:  appID,
		Usage: "single till point of sale service",
		Commands: []*cli.Command{
			serviceCommand(logger),
			migrateCommand(logger),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.WithError(err).Fatal("application failed")
	}
}

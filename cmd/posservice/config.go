package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"posservice/pkg/sale/infrastructure/mysql"
)

const (
	storageMySQL  = "mysql"
	storageMemory = "memory"
)

type config struct {
	ServeRESTAddress string `envconfig:"serve_rest_address" default:":8080"`

	Storage           string        `envconfig:"storage" default:"mysql"`
	DBHost            string        `envconfig:"db_host" default:"localhost:3306"`
	DBName            string        `envconfig:"db_name" default:"posservice"`
	DBUser            string        `envconfig:"db_user" default:"root"`
	DBPassword        string        `envconfig:"db_password"`
	DBMaxConn         int           `envconfig:"db_max_conn" default:"10"`
	DBConnMaxLifetime time.Duration `envconfig:"db_conn_max_lifetime" default:"1h"`

	KafkaBrokers string `envconfig:"kafka_brokers"`
	KafkaTopic   string `envconfig:"kafka_topic" default:"pos-sales"`

	NegativeTotalPolicy string        `envconfig:"negative_total_policy" default:"clamp"`
	LogLevel            string        `envconfig:"log_level" default:"info"`
	ShutdownTimeout     time.Duration `envconfig:"shutdown_timeout" default:"10s"`
}

func parseConfig(logger *logrus.Logger) (*config, error) {
	c := &config{}
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	if c.Storage != storageMySQL && c.Storage != storageMemory {
		return nil, errors.Errorf("unknown storage %q", c.Storage)
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse log level")
	}
	logger.SetLevel(level)
	return c, nil
}

func (c *config) dsn() mysql.DSN {
	return mysql.DSN{
		User:     c.DBUser,
		Password: c.DBPassword,
		Host:     c.DBHost,
		Database: c.DBName,
	}
}

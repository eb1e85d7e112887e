package mysql

import (
	"context"
	"embed"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

type DSN struct {
	User     string
	Password string
	Host     string
	Database string
}

func (d DSN) String() string {
	return d.config().FormatDSN()
}

func (d DSN) config() *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.Host
	cfg.DBName = d.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg
}

type ConnectionConfig struct {
	MaxConnections  int
	ConnMaxLifetime time.Duration
}

func Open(ctx context.Context, dsn DSN, config ConnectionConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mysql")
	}
	db.SetMaxOpenConns(config.MaxConnections)
	db.SetMaxIdleConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	return db, nil
}

// Migrate applies every pending migration. It opens its own connection
// because migration files hold several statements each.
func Migrate(ctx context.Context, dsn DSN) error {
	cfg := dsn.config()
	cfg.MultiStatements = true

	db, err := sqlx.ConnectContext(ctx, "mysql", cfg.FormatDSN())
	if err != nil {
		return errors.Wrap(err, "failed to connect to mysql")
	}
	defer db.Close()

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "failed to open migrations")
	}
	driver, err := migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to create migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, dsn.Database, driver)
	if err != nil {
		return errors.Wrap(err, "failed to create migrator")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "failed to apply migrations")
	}
	return nil
}

// Package remotedb is the shared class board: a Postgres database reached with the anonymous access token,
// plus object storage for attachments.
package remotedb

import (
	"context"
	"embed"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/classboard/core"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ChangesChannel is the NOTIFY channel announcing writes to the board tables. The payload is the table name.
const ChangesChannel = "board_changes"

var (
	// errors
	ErrNotConfigured = errors.New("remote endpoint or access token not configured")
)

// DSN builds the connection URL: conf.URL with conf.User authenticated by conf.Token.
func DSN(conf core.RemoteConfig) (string, error) {
	if conf.URL == "" || conf.Token == "" {
		return "", ErrNotConfigured
	}
	u, err := url.Parse(conf.URL)
	if err != nil {
		return "", errors.Wrap(err, "parsing remote url")
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", errors.Errorf("unsupported remote scheme %q", u.Scheme)
	}
	user := conf.User
	if user == "" {
		user = "anon"
	}
	u.User = url.UserPassword(user, conf.Token)

	sslMode := "require"
	if conf.DisableTLS {
		sslMode = "disable"
	}
	q := u.Query()
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open connects to the remote database and waits for it to answer.
func Open(ctx context.Context, conf core.RemoteConfig) (*sqlx.DB, error) {
	dsn, err := DSN(conf)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening remote database")
	}
	if err = ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "remote database ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "remote database ping timeout")
}

// Migrate brings the remote schema up to date.
func Migrate(db *sqlx.DB) error {
	return RunMigrations(db, "up")
}

// RunMigrations runs a goose command (up, down, status, version, ...) on the embedded migrations.
func RunMigrations(db *sqlx.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.Run(command, db.DB, "migrations", args...); err != nil {
		return errors.Wrapf(err, "migrate %s", command)
	}
	return nil
}

// database/client.go
package database

import (
	"context"
	"fmt"
	"time"

	"tournament-wallet/models"

	"github.com/decred/slog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultRetryBackoff = 25 * time.Millisecond

// Client is the storage handle passed to every service.
// A client built with Unavailable has no connection: reads degrade to empty
// results with a warning and writes fail with ErrUnavailable.
type Client struct {
	db         *gorm.DB
	reason     error
	log        slog.Logger
	maxRetries int
	backoff    time.Duration
}

// Open connects to Postgres and returns an available client.
func Open(dsn string, log slog.Logger, maxRetries int) (*Client, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db, log, maxRetries), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log slog.Logger, maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{db: db, log: log, maxRetries: maxRetries, backoff: defaultRetryBackoff}
}

// Unavailable returns the degraded client used when storage is not configured.
func Unavailable(reason error, log slog.Logger) *Client {
	if reason == nil {
		reason = ErrUnavailable
	}
	return &Client{reason: reason, log: log, maxRetries: 1}
}

// Available reports whether the client has a live connection.
func (c *Client) Available() bool {
	return c.db != nil
}

// Reason explains why the client is unavailable; nil when available.
func (c *Client) Reason() error {
	return c.reason
}

// Reader returns a session for read queries. When storage is unavailable it
// logs a warning naming op and returns false; callers return an empty result.
func (c *Client) Reader(ctx context.Context, op string) (*gorm.DB, bool) {
	if c.db == nil {
		c.log.Warnf("⚠️ [%s] storage unavailable, returning empty result: %v", op, c.reason)
		return nil, false
	}
	return c.db.WithContext(ctx), true
}

// Writer returns a session for writes, or ErrUnavailable.
func (c *Client) Writer(ctx context.Context) (*gorm.DB, error) {
	if c.db == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, c.reason)
	}
	return c.db.WithContext(ctx), nil
}

// Transaction runs fn inside one database transaction and retries the whole
// function on serialization failures and deadlocks. fn may run more than once,
// so it must not leak state from a failed attempt.
func (c *Client) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db, err := c.Writer(ctx)
	if err != nil {
		return err
	}
	return retryTransient(ctx, c.log, c.maxRetries, c.backoff, func() error {
		return db.Transaction(fn)
	})
}

// Migrate creates or updates every table the service owns.
func (c *Client) Migrate() error {
	if c.db == nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, c.reason)
	}
	if err := c.db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func retryTransient(ctx context.Context, log slog.Logger, attempts int, backoff time.Duration, op func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil || !IsTransientConflict(err) {
			return err
		}
		log.Debugf("[STOR] transient conflict on attempt %d/%d: %v", attempt, attempts, err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrTransientConflict, attempts, err)
}

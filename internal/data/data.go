package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clickpipe/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database drivers.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(NewData, NewLinkRepo, NewLinkCache, NewClickRepo, NewUnitOfWork)

// Data holds the shared store handles.
type Data struct {
	db      *sql.DB
	dialect string
	rdb     *redis.Client
}

// NewData opens the primary store and, when configured, the Redis client.
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))

	db, err := openDB(c.Database)
	if err != nil {
		return nil, nil, err
	}
	if c.Database.AutoMigrate {
		if err := Migrate(db, c.Database.Driver); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	d := &Data{db: db, dialect: c.Database.Driver}
	if c.Redis != nil && c.Redis.Addr != "" {
		d.rdb = redis.NewClient(&redis.Options{
			Addr:         c.Redis.Addr,
			Password:     c.Redis.Password,
			DB:           c.Redis.DB,
			DialTimeout:  c.Redis.DialTimeout.Duration,
			ReadTimeout:  c.Redis.ReadTimeout.Duration,
			WriteTimeout: c.Redis.WriteTimeout.Duration,
		})
		ctx, cancel := context.WithTimeout(context.Background(), c.Redis.DialTimeout.Duration+time.Second)
		if err := d.rdb.Ping(ctx).Err(); err != nil {
			helper.Warnf("redis unreachable at startup, cache reads will miss until it recovers: %v", err)
		}
		cancel()
	} else {
		helper.Info("redis not configured, mapping cache disabled")
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		if d.rdb != nil {
			if err := d.rdb.Close(); err != nil {
				helper.Error(err)
			}
		}
		if err := d.db.Close(); err != nil {
			helper.Error(err)
		}
	}

	return d, cleanup, nil
}

// NewDataFromDB wraps already opened handles. rdb may be nil.
func NewDataFromDB(db *sql.DB, dialect string, rdb *redis.Client) *Data {
	return &Data{db: db, dialect: dialect, rdb: rdb}
}

// Ping checks the primary store.
func (d *Data) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func openDB(c *conf.Database) (*sql.DB, error) {
	if c.Driver != DialectPostgres && c.Driver != DialectSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}

	db, err := sql.Open(c.Driver, c.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if c.Driver == DialectSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(c.MaxOpenConns)
		db.SetMaxIdleConns(c.MaxIdleConns)
		db.SetConnMaxLifetime(c.ConnMaxLifetime.Duration)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or the pool.
func (d *Data) conn(ctx context.Context) querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return d.db
}

package gormsqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	gormdriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// DB pairs a read-only pool with a single writer connection.
type DB struct {
	R *gorm.DB
	W *gorm.DB
}

type Tx struct {
	*gorm.DB
}

type cbfn func(tx *Tx) error

func (db *DB) ReadTX(ctx context.Context, fn cbfn) error {
	return db.R.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{DB: tx})
	}, &sql.TxOptions{ReadOnly: true})
}

func (db *DB) WriteTX(ctx context.Context, fn cbfn) error {
	return db.W.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{DB: tx})
	})
}

func (db *DB) WriteSQLDB() (*sql.DB, error) {
	return db.W.DB()
}

// Ping checks both pools.
func (db *DB) Ping(ctx context.Context) error {
	for name, g := range map[string]*gorm.DB{"reader": db.R, "writer": db.W} {
		sqlDB, err := g.DB()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return errors.Join(closeGORM(db.R), closeGORM(db.W))
}

var _ io.Closer = (*DB)(nil)

type options struct {
	logLevel      logger.LogLevel
	slowThreshold time.Duration
	readConns     int
	output        io.Writer
}

type Option func(*options)

// WithQueryLog logs every statement instead of only errors.
func WithQueryLog(enabled bool) Option {
	return func(o *options) {
		if enabled {
			o.logLevel = logger.Info
		}
	}
}

// WithSlowThreshold logs statements slower than d as warnings.
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.slowThreshold = d
			if o.logLevel < logger.Warn {
				o.logLevel = logger.Warn
			}
		}
	}
}

// WithReadConns caps the reader pool. Zero keeps one connection per CPU.
func WithReadConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readConns = n
		}
	}
}

func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// Open opens a reader pool and a single-connection writer pool on file.
// Pragmas are part of the DSN so every pooled connection gets them.
func Open(file string, opts ...Option) (*DB, error) {
	o := options{
		logLevel:      logger.Silent,
		slowThreshold: time.Second,
		readConns:     runtime.NumCPU(),
		output:        os.Stdout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	gormLogger := logger.New(
		log.New(o.output, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             o.slowThreshold,
			LogLevel:                  o.logLevel,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	reader, err := openPool(buildDSN(file, true), gormLogger, o.readConns)
	if err != nil {
		return nil, fmt.Errorf("open read db: %w", err)
	}
	// sqlite allows one writer at a time
	writer, err := openPool(buildDSN(file, false), gormLogger, 1)
	if err != nil {
		_ = closeGORM(reader)
		return nil, fmt.Errorf("open write db: %w", err)
	}
	return &DB{R: reader, W: writer}, nil
}

func openPool(dsn string, l logger.Interface, conns int) (*gorm.DB, error) {
	g, err := gorm.Open(gormdriver.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		PrepareStmt: true,
		Logger:      l,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := g.DB()
	if err != nil {
		_ = closeGORM(g)
		return nil, err
	}
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)
	return g, nil
}

func buildDSN(file string, readOnly bool) string {
	pragmas := []string{
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"temp_store(MEMORY)",
		"cache_size(-20000)",
		"foreign_keys(1)",
		"busy_timeout(5000)",
		"trusted_schema(OFF)",
	}
	if readOnly {
		pragmas = append(pragmas, "query_only(1)")
	} else {
		pragmas = append(pragmas, "query_only(0)")
	}

	params := make([]string, 0, len(pragmas)+1)
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	if !readOnly {
		params = append(params, "_txlock=immediate")
	}
	return file + "?" + strings.Join(params, "&")
}

func closeGORM(g *gorm.DB) error {
	if g == nil {
		return nil
	}
	sqlDB, err := g.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jaennil/slippymap/internal/tile"
	"github.com/jaennil/slippymap/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens path, which is expected to be an in-memory DSN such as
// "file:tiles.db?cache=shared&mode=memory".
func NewSQLiteStore(path string, l logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// a shared in-memory database disappears with its last connection
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	c := &SQLiteStore{
		db:     db,
		logger: l,
	}

	err = c.runMigrations()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run tile store migrations: %w", err)
	}

	l.Info("sqlite tile store initialized", "path", path)

	return c, nil
}

type gooseLogger struct {
	l logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.l.Debug(fmt.Sprintf(format, v...))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.l.Error(fmt.Sprintf(format, v...))
}

func (c *SQLiteStore) runMigrations() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{c.logger})

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	return goose.Up(c.db, "migrations")
}

var _ TileStore = (*SQLiteStore)(nil)

func (c *SQLiteStore) Get(ctx context.Context, k tile.Key) ([]byte, bool, error) {
	c.logger.Debug("sqlite store get", "z", k.Zoom, "x", k.Column, "y", k.Row)

	query := `SELECT tile_data
	FROM tile_store
	WHERE z = ? AND x = ? AND y = ?`

	var tileData []byte
	err := c.db.QueryRowContext(ctx, query, k.Zoom, k.Column, k.Row).Scan(&tileData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		c.logger.Error("sqlite store get failed", "z", k.Zoom, "x", k.Column, "y", k.Row, "error", err)
		return nil, false, err
	}

	return tileData, true, nil
}

func (c *SQLiteStore) Set(ctx context.Context, k tile.Key, v []byte) error {
	c.logger.Debug("sqlite store set", "z", k.Zoom, "x", k.Column, "y", k.Row, "size", len(v))

	query := `INSERT INTO tile_store (z, x, y, tile_data)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(z, x, y) DO UPDATE SET tile_data = excluded.tile_data`

	_, err := c.db.ExecContext(ctx, query, k.Zoom, k.Column, k.Row, v)
	if err != nil {
		c.logger.Error("sqlite store set failed", "z", k.Zoom, "x", k.Column, "y", k.Row, "error", err)
		return err
	}

	return nil
}

func (c *SQLiteStore) Close() error {
	return c.db.Close()
}

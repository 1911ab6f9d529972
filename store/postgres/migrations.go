package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Unlock store.
var Migrations = migrate.NewGroup("unlock")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_unlock_kv",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS unlock_kv (
    item_key   TEXT PRIMARY KEY,
    item_value TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_unlock_kv_updated_at ON unlock_kv (updated_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS unlock_kv`)
				return err
			},
		},
	)
}

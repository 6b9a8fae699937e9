package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Backup writes a consistent copy of the database to dest.
//
// VACUUM INTO produces a compacted snapshot while the database stays
// usable. SQLite refuses to overwrite an existing file, so dest must not
// exist yet.
func (db *DB) Backup(ctx context.Context, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("sqlite: backup destination %s already exists", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("sqlite: creating backup directory: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("sqlite: backing up to %s: %w", dest, err)
	}
	return nil
}

package sqlitevec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDSNRequired is returned when neither a DSN nor a DB is configured.
var ErrDSNRequired = errors.New("sqlitevec: dsn required")

const busyTimeoutMS = 5000

// prepareDSN creates the database directory and appends WAL and
// busy_timeout pragmas unless the DSN already sets them.
func prepareDSN(dsn string) (string, error) {
	if isMemoryDSN(dsn) {
		return dsn, nil
	}
	path := dsn
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimPrefix(path, "file:")
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("sqlitevec: create %s: %w", dir, err)
		}
	}
	lower := strings.ToLower(dsn)
	if !strings.Contains(lower, "_pragma=journal_mode") {
		dsn = addPragma(dsn, "journal_mode(WAL)")
	}
	if !strings.Contains(lower, "_pragma=busy_timeout") {
		dsn = addPragma(dsn, fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	}
	return dsn, nil
}

func isMemoryDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return dsn == ":memory:" || strings.HasPrefix(lower, "file::memory:")
}

func addPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ResolveParkDBName returns the database of the most recently published
// revision of a park, matched by name, from public.park_databases.
func ResolveParkDBName(ctx context.Context, meta *sql.DB, park string) (string, error) {
	park = strings.TrimSpace(park)
	if park == "" {
		return "", fmt.Errorf("park is required")
	}
	// Fully qualified to the public schema of the cluster's 'postgres' database
	q := `
SELECT db_name
FROM public.park_databases
WHERE park_name ILIKE '%' || $1 || '%'
ORDER BY published_at DESC
LIMIT 1`
	var dbName sql.NullString
	if err := meta.QueryRowContext(ctx, q, park).Scan(&dbName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no database found for park like %q", park)
		}
		return "", err
	}
	if !dbName.Valid || dbName.String == "" {
		return "", fmt.Errorf("empty db_name for park like %q", park)
	}
	return dbName.String, nil
}

package db

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errEmptyDSN = errors.New("empty DSN")

// WithDBName points dsn at another database on the same cluster. A DSN
// without a scheme is read as postgres://.
func WithDBName(dsn, database string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", errEmptyDSN
	}
	if !strings.Contains(dsn, "://") {
		dsn = "postgres://" + dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported dsn scheme %q", u.Scheme)
	}
	u.Path = "/" + strings.TrimPrefix(database, "/")
	return u.String(), nil
}

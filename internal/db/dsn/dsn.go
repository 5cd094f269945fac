// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spacehome/spacehome/internal/config"
)

const (
	defaultPostgresPort = 5432
	defaultMySQLPort    = 3306

	// MySQLDefaultExtras are used when DB.Extras is empty. parseTime is required
	// for gorm to scan DATETIME columns into time.Time.
	MySQLDefaultExtras = "charset=utf8mb4&parseTime=True&loc=UTC"
)

// ErrUnknownEngine is returned for an unsupported gorm engine.
var ErrUnknownEngine = errors.New("unknown gorm engine")

// Create builds the Data Source Name for db.GormEngine. A non empty db.URL is
// returned unchanged.
func Create(db config.DB) (string, error) {
	if db.URL != "" {
		return db.URL, nil
	}

	switch db.GormEngine {
	case config.EngineSQLite, "":
		if db.Extras == "" {
			return db.Path, nil
		}

		return db.Path + "?" + db.Extras, nil
	case config.EnginePostgres:
		port := db.Port
		if port == 0 {
			port = defaultPostgresPort
		}

		out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			db.Host,
			port,
			db.User,
			db.Password,
			db.Name,
		)

		return strings.TrimSpace(out + " " + db.Extras), nil
	case config.EngineMySQL:
		port := db.Port
		if port == 0 {
			port = defaultMySQLPort
		}

		extras := db.Extras
		if extras == "" {
			extras = MySQLDefaultExtras
		}

		out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			db.User,
			db.Password,
			db.Host,
			port,
			db.Name,
			extras,
		)

		return out, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownEngine, db.GormEngine)
	}
}

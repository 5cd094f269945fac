package config

// Supported gorm engines.
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineMySQL    = "mysql"
)

// DB holds the database configuration settings.
type DB struct {
	GormEngine string // sqlite, postgres or mysql
	URL        string // full dsn, overrides the parts below
	Path       string // sqlite database file
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
}

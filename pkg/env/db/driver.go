package db

import "strconv"

const (
	driverMySQL      = "mysql"
	driverPostgreSQL = "pgx"

	driverMySQLPort      = 3306
	driverPostgreSQLPort = 5432
)

type DriverType string

func (t DriverType) String() string {
	return t.Name()
}

// Name returns the name the driver is registered under with database/sql.
func (t DriverType) Name() string {
	switch t {
	case "mysql":
		return driverMySQL
	case "postgresql", "postgres", "pgx":
		return driverPostgreSQL
	default:
		return ""
	}
}

func (t DriverType) Port() int {
	switch t.Name() {
	case driverMySQL:
		return driverMySQLPort
	case driverPostgreSQL:
		return driverPostgreSQLPort
	default:
		return 0
	}
}

// Placeholder returns the bind parameter marker for the n-th (1-based)
// argument of a statement.
func (t DriverType) Placeholder(n int) string {
	if t.Name() == driverPostgreSQL {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// CatalogFunction returns the SQL function that yields the name of the
// database the connection is bound to, which is what the service calls a
// catalog.
func (t DriverType) CatalogFunction() string {
	switch t.Name() {
	case driverMySQL:
		return "DATABASE()"
	default:
		return "current_database()"
	}
}

func (t DriverType) CatalogQuery() string {
	return "SELECT " + t.CatalogFunction()
}

// SearchPathQuery returns a statement that sets the default schema for the
// rest of the current transaction, or an empty string when the driver has
// no such statement.
func (t DriverType) SearchPathQuery() string {
	if t.Name() == driverPostgreSQL {
		return "SELECT set_config('search_path', $1, true)"
	}
	return ""
}

func (t DriverType) IsValid() bool {
	return t.Name() != ""
}

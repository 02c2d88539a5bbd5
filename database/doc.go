// Package database opens the connection that backs the junction
// repositories and owns its lifecycle: connection pooling and health checks,
// versioned migrations for the registered junction models, foreign keys, SQL
// seed files and the classification of driver errors. It is built on Bun and
// supports MySQL, PostgreSQL (lib/pq or pgx) and SQLite.
package database

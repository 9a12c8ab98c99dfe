package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/edupay/upiverify/lib/service"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	sqltrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/database/sql"
)

var postgresSchemes = []string{"postgres://", "postgresql://", "unix://"}

// Open connects to the postgres database in DATABASE_URI. Queries are traced
// to Datadog when an agent is configured and logged when BUNDEBUG is set.
func Open(config *service.Config) (*bun.DB, error) {
	if !isPostgresDSN(config.DatabaseUri) {
		return nil, fmt.Errorf("invalid database connection string %q, only postgres is supported", config.DatabaseUri)
	}

	sqlDB := openSQL(config.DatabaseUri, config.DatadogAgentUrl != "")
	sqlDB.SetMaxOpenConns(config.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(config.DatabaseMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(config.DatabaseConnMaxLifetime) * time.Second)

	db := bun.NewDB(sqlDB, pgdialect.New())
	// BUNDEBUG=1 logs failed queries, BUNDEBUG=2 logs all of them
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithEnabled(false), bundebug.FromEnv("BUNDEBUG")))
	return db, nil
}

func openSQL(dsn string, traced bool) *sql.DB {
	connector := pgdriver.NewConnector(pgdriver.WithDSN(dsn))
	if !traced {
		return sql.OpenDB(connector)
	}
	sqltrace.Register("postgres", pgdriver.Driver{}, sqltrace.WithServiceName("upiverify"))
	return sqltrace.OpenDB(connector)
}

func isPostgresDSN(dsn string) bool {
	for _, scheme := range postgresSchemes {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

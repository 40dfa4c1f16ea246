package services

import (
	"database/sql"

	"gorm.io/gorm"
)

// Database is the slice of *gorm.DB the engine needs: the ability to run a
// closure inside a transaction. Keeping services on this interface lets
// tests drive the state machine with an in-memory fake instead of Postgres.
type Database interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// Package gorm backs the credential store with a relational database.
//
// The schema owns the two cross-request ordering guarantees the auth core
// relies on: a unique index on users.username and a composite primary key on
// provider_links(provider, subject_id). Find-or-create never does a bare
// check-then-insert; it inserts and lets the database arbitrate.
//
// Open with any GORM dialector:
//
//	db, err := gorm.Open(postgres.Open(dsn))   // production
//	db, err := gorm.Open(sqlite.Open("app.db")) // development
//
// via the package's Open helper, which switches on error translation so
// uniqueness conflicts surface as gorm.ErrDuplicatedKey on every dialect.
package gorm

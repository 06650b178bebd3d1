// Package export loads finished event records into a SQLite database.
//
// The database mirrors the details file: one row per event plus child tables
// for tags and sponsors that keep their original order. Each export replaces
// the previous contents in a single transaction.
package export

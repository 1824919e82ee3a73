// Package database opens the configured document store backend.
//
// Drivers:
//   - postgres: pgxpool connection, documents kept in a JSONB table
//   - sqlite: embedded database file
//   - memory: process memory, lost on exit
package database

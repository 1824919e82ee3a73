// Package docstore stores JSON documents grouped into collections.
//
// A document is addressed by (collection, id). Sub-collections nest under a
// document with the path "parent/{id}/child", so
// users/u1/transactions holds the transaction documents of user u1.
//
// Backends:
//   - PostgreSQL (JSONB, pgxpool)
//   - SQLite (embedded, modernc.org/sqlite)
//   - Memory (tests and local development)
package docstore

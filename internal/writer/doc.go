// Package writer persists price-table snapshots.
//
// Snapshots live in the price-tables collection keyed by the UTC hour they
// were taken for, formatted YYYY-MM-DD-HH. Keys sort lexicographically in
// chronological order, so range reads are a plain id comparison.
//
// A snapshot is written once per refresh run and overwritten, never merged.
package writer

// Package refresh runs the scheduled price-table refresh.
//
// A run moves Idle → Fetching → Writing → Done, or to Failed from either
// working state. Each run computes its snapshot key, builds the table,
// and writes it. Failures end the run and are logged; the next scheduled
// tick starts from scratch.
//
// The Scheduler fires runs on a cron schedule evaluated in UTC and never
// overlaps two runs.
package refresh

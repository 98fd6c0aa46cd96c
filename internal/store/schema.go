package store

import "fmt"

// Amounts are uint64 stored in INTEGER columns through a bit-preserving
// int64 conversion, so they must not be summed or compared in SQL.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS policy (
		id                     INTEGER PRIMARY KEY CHECK (id = 1),
		baseline_allocation    INTEGER NOT NULL,
		max_investor_share_bps INTEGER NOT NULL,
		daily_cap              INTEGER NOT NULL,
		min_payout             INTEGER NOT NULL,
		quote_mint             TEXT NOT NULL,
		creator_wallet         TEXT NOT NULL,
		authority              TEXT NOT NULL,
		created_at             INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS progress (
		id                             INTEGER PRIMARY KEY CHECK (id = 1),
		last_distribution_ts           INTEGER NOT NULL,
		current_day                    INTEGER NOT NULL,
		daily_distributed_to_investors INTEGER NOT NULL,
		carry_over                     INTEGER NOT NULL,
		current_page                   INTEGER NOT NULL,
		pages_processed_today          INTEGER NOT NULL,
		total_investors                INTEGER NOT NULL,
		creator_payout_sent            INTEGER NOT NULL,
		has_base_fees                  INTEGER NOT NULL,
		total_rounding_dust            INTEGER NOT NULL,
		day_total_available            INTEGER NOT NULL,
		day_locked_total               INTEGER NOT NULL,
		day_investor_allocation        INTEGER NOT NULL,
		investors_processed_today      INTEGER NOT NULL,
		updated_at                     INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS accounts (
		address TEXT PRIMARY KEY,
		mint    TEXT NOT NULL,
		owner   TEXT NOT NULL,
		balance INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS transfers (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		timestamp   INTEGER NOT NULL,
		from_addr   TEXT NOT NULL,
		to_addr     TEXT NOT NULL,
		mint        TEXT NOT NULL,
		amount      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transfers_to ON transfers(to_addr)`,

	`CREATE TABLE IF NOT EXISTS position (
		id            INTEGER PRIMARY KEY CHECK (id = 1),
		address       TEXT NOT NULL,
		pool          TEXT NOT NULL,
		owner         TEXT NOT NULL,
		base_mint     TEXT NOT NULL,
		quote_mint    TEXT NOT NULL,
		accrued_base  INTEGER NOT NULL,
		accrued_quote INTEGER NOT NULL,
		created_at    INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id    TEXT NOT NULL,
		kind      INTEGER NOT NULL,
		day       INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		payload   BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_day ON events(day)`,

	`CREATE TABLE IF NOT EXISTS paid_streams (
		day    INTEGER NOT NULL,
		stream TEXT NOT NULL,
		PRIMARY KEY (day, stream)
	)`,
}

func (s *Store) migrate() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec %q: %w", m[:40], err)
		}
	}
	return nil
}

package db

import (
	"context"
	"fmt"

	"ridesim/internal/sim"
)

const journalDDL = `
CREATE TABLE IF NOT EXISTS ride_events (
  id          BIGSERIAL PRIMARY KEY,
  tick        BIGINT      NOT NULL,
  kind        TEXT        NOT NULL,
  ride_id     INTEGER     NOT NULL,
  train_id    INTEGER     NOT NULL,
  other_train INTEGER     NOT NULL,
  station     INTEGER     NOT NULL,
  before_v    INTEGER[]   NOT NULL,
  after_v     INTEGER[]   NOT NULL,
  detail      TEXT        NOT NULL DEFAULT '',
  recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureJournal creates the ride_events table if it is missing.
func (s *Store) EnsureJournal(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, journalDDL); err != nil {
		return fmt.Errorf("create ride_events: %w", err)
	}
	return nil
}

// AppendEvents writes one tick's events in a single transaction.
func (s *Store) AppendEvents(ctx context.Context, events []sim.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO ride_events (tick, kind, ride_id, train_id, other_train, station, before_v, after_v, detail)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("prepare journal: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.ExecContext(ctx,
			int64(ev.Tick), ev.Kind.String(), int32(ev.Ride), ev.Train, ev.Other, ev.Station,
			ev.Before[:], ev.After[:], ev.Detail)
		if err != nil {
			return fmt.Errorf("insert %s event: %w", ev.Kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal: %w", err)
	}
	return nil
}

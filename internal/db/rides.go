package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"ridesim/internal/ride"
	"ridesim/internal/sim"
	"ridesim/internal/track"
)

// Store reads a park's rides, tracks and trains and journals ride events.
// It serves as the runner's layout source and journal.
type Store struct {
	db  *sql.DB
	log zerolog.Logger

	colsOnce sync.Once
	cols     map[string]bool
	colsErr  error
}

func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log.With().Str("component", "db").Logger()}
}

// RideRecord is one row of the rides table.
type RideRecord struct {
	ID       ride.ID
	Name     string
	Config   ride.Config
	Origin   Origin
	Revision int64
}

// Origin is where a ride's first track piece sits and whether the pieces
// form a closed circuit.
type Origin struct {
	Tile    track.Tile
	Z       int32
	Dir     uint8
	Circuit bool
}

// Element is one stored track piece.
type Element struct {
	Type  string
	Chain bool
	Speed int32 // Q16.16, brakes and boosters only
}

// TrainRecord is a train to place when the park opens.
type TrainRecord struct {
	Ride ride.ID
	Spec sim.TrainSpec
}

type rideRow struct {
	typ, mode, waitFor     string
	launch, lift           int32
	minWait, maxWait       int64
	synced, leaveOnArrival bool
	circuits, operations   int
}

func (r rideRow) config() (ride.Config, error) {
	t, err := ride.ParseType(r.typ)
	if err != nil {
		return ride.Config{}, err
	}
	m, err := ride.ParseMode(r.mode)
	if err != nil {
		return ride.Config{}, err
	}
	w, err := parseWaitFor(r.waitFor)
	if err != nil {
		return ride.Config{}, err
	}
	if r.minWait < 0 || r.maxWait < 0 {
		return ride.Config{}, fmt.Errorf("negative wait %d/%d: %w", r.minWait, r.maxWait, ride.ErrInvalidConfig)
	}
	cfg := ride.Config{
		Type:                    t,
		Mode:                    m,
		LaunchSpeed:             r.launch,
		LiftSpeed:               r.lift,
		MinWait:                 uint32(r.minWait),
		MaxWait:                 uint32(r.maxWait),
		WaitFor:                 w,
		Synchronised:            r.synced,
		LeaveWhenAnotherArrives: r.leaveOnArrival,
		Circuits:                r.circuits,
		Operations:              r.operations,
	}.WithDefaults()
	return cfg, cfg.Validate()
}

var waitForNames = map[string]ride.WaitFor{
	"":              ride.WaitForNone,
	"none":          ride.WaitForNone,
	"any":           ride.WaitForAny,
	"quarter":       ride.WaitForQuarter,
	"half":          ride.WaitForHalf,
	"three_quarter": ride.WaitForThreeQuarter,
	"full":          ride.WaitForFull,
}

func parseWaitFor(s string) (ride.WaitFor, error) {
	w, ok := waitForNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown wait_for %q", s)
	}
	return w, nil
}

// LoadRides returns every ride of the park in id order.
func (s *Store) LoadRides(ctx context.Context) ([]RideRecord, error) {
	q := `
SELECT ride_id, name, ride_type, mode,
       COALESCE(launch_speed, 0), COALESCE(lift_speed, 0),
       COALESCE(min_wait, 0), COALESCE(max_wait, 0), COALESCE(wait_for, ''),
       COALESCE(synchronised, false), COALESCE(leave_when_another_arrives, false),
       COALESCE(circuits, 0), COALESCE(operations, 0),
       origin_x, origin_y, origin_z, origin_dir, circuit, revision
FROM rides
ORDER BY ride_id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query rides: %w", err)
	}
	defer rows.Close()

	var out []RideRecord
	for rows.Next() {
		var (
			rec RideRecord
			row rideRow
			dir int16
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &row.typ, &row.mode,
			&row.launch, &row.lift, &row.minWait, &row.maxWait, &row.waitFor,
			&row.synced, &row.leaveOnArrival, &row.circuits, &row.operations,
			&rec.Origin.Tile.X, &rec.Origin.Tile.Y, &rec.Origin.Z, &dir, &rec.Origin.Circuit, &rec.Revision); err != nil {
			return nil, err
		}
		rec.Origin.Dir = uint8(dir & 3)
		cfg, err := row.config()
		if err != nil {
			// Skip rides the engine cannot run
			s.log.Warn().Err(err).Int32("ride", int32(rec.ID)).Str("name", rec.Name).Msg("skip ride")
			continue
		}
		rec.Config = cfg
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LayoutRevisions returns the current track revision of every ride.
func (s *Store) LayoutRevisions(ctx context.Context) (map[ride.ID]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ride_id, revision FROM rides`)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()
	out := make(map[ride.ID]int64)
	for rows.Next() {
		var id ride.ID
		var rev int64
		if err := rows.Scan(&id, &rev); err != nil {
			return nil, err
		}
		out[id] = rev
	}
	return out, rows.Err()
}

// LoadLayout reads and builds the track of one ride.
func (s *Store) LoadLayout(ctx context.Context, id ride.ID) (*track.Layout, error) {
	var (
		o   Origin
		dir int16
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT origin_x, origin_y, origin_z, origin_dir, circuit FROM rides WHERE ride_id = $1`, id).
		Scan(&o.Tile.X, &o.Tile.Y, &o.Z, &dir, &o.Circuit)
	if err != nil {
		return nil, fmt.Errorf("ride %d origin: %w", id, err)
	}
	o.Dir = uint8(dir & 3)
	elems, err := s.elements(ctx, id)
	if err != nil {
		return nil, err
	}
	l, err := BuildLayout(o, elems)
	if err != nil {
		return nil, fmt.Errorf("ride %d layout: %w", id, err)
	}
	return l, nil
}

// Older park databases predate chain lifts and brake speeds on track_elements.
func (s *Store) elementColumns(ctx context.Context) (map[string]bool, error) {
	s.colsOnce.Do(func() {
		s.cols, s.colsErr = hasColumns(ctx, s.db, "public", "track_elements", "chain", "speed")
	})
	return s.cols, s.colsErr
}

func (s *Store) elements(ctx context.Context, id ride.ID) ([]Element, error) {
	cols, err := s.elementColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect track_elements columns: %w", err)
	}
	chain, speed := "false", "0"
	if cols["chain"] {
		chain = "COALESCE(chain, false)"
	}
	if cols["speed"] {
		speed = "COALESCE(speed, 0)"
	}
	q := fmt.Sprintf(`SELECT track_type, %s, %s FROM track_elements WHERE ride_id = $1 ORDER BY seq`, chain, speed)
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("query track_elements: %w", err)
	}
	defer rows.Close()
	var out []Element
	for rows.Next() {
		var el Element
		if err := rows.Scan(&el.Type, &el.Chain, &el.Speed); err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, rows.Err()
}

// BuildLayout places elements in order from the origin.
func BuildLayout(o Origin, elems []Element) (*track.Layout, error) {
	b := track.NewBuilder(o.Tile, o.Z, o.Dir)
	for i, el := range elems {
		t, err := track.ParseTrackType(strings.TrimSpace(el.Type))
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		var opts []track.Option
		if el.Chain {
			opts = append(opts, track.WithChain())
		}
		if el.Speed != 0 {
			opts = append(opts, track.WithSpeed(el.Speed))
		}
		b.Add(t, opts...)
	}
	if o.Circuit {
		return b.Close()
	}
	return b.Build()
}

// LoadTrains returns the trains to place at startup, grouped by ride in
// placement order.
func (s *Store) LoadTrains(ctx context.Context) ([]TrainRecord, error) {
	q := `
SELECT ride_id, cars, COALESCE(segment, 0), COALESCE(progress, 0), COALESCE(velocity, 0)
FROM trains
ORDER BY ride_id, train_no`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query trains: %w", err)
	}
	defer rows.Close()
	var out []TrainRecord
	for rows.Next() {
		var (
			tr  TrainRecord
			seg int32
		)
		if err := rows.Scan(&tr.Ride, &tr.Spec.Cars, &seg, &tr.Spec.Progress, &tr.Spec.Velocity); err != nil {
			return nil, err
		}
		tr.Spec.Segment = track.SegmentID(seg)
		out = append(out, tr)
	}
	return out, rows.Err()
}

package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"ridesim/internal/db"
	"ridesim/internal/ride"
	"ridesim/internal/sim"
	"ridesim/internal/track"
)

type demoRide struct {
	id     ride.ID
	name   string
	cfg    ride.Config
	origin db.Origin
	track  []db.Element
	trains []sim.TrainSpec
}

// loop closes a square circuit whose first side is the given pieces.
func loop(side ...string) []db.Element {
	var out []db.Element
	for _, s := range side {
		out = append(out, db.Element{Type: s})
	}
	for i := 0; i < 4; i++ {
		out = append(out, db.Element{Type: "right_quarter_turn_3"})
		if i < 3 {
			for range side {
				out = append(out, db.Element{Type: "flat"})
			}
		}
	}
	return out
}

var platformTrack = []db.Element{{Type: "begin_station"}, {Type: "end_station"}}

// demoPark is the park run when no database is configured.
func demoPark() []demoRide {
	return []demoRide{
		{
			id:     1,
			name:   "Steel Viper",
			cfg:    ride.Config{Type: ride.TypeSteelCoaster, Mode: ride.ModeContinuousCircuit},
			origin: db.Origin{Circuit: true},
			track:  loop("begin_station", "middle_station", "end_station", "flat", "flat", "flat", "flat", "flat"),
			trains: []sim.TrainSpec{{Cars: 2, Segment: 2, Progress: 31}},
		},
		{
			id:     2,
			name:   "Merry-Go-Round",
			cfg:    ride.Config{Type: ride.TypeMerryGoRound, Mode: ride.ModeRotation},
			origin: db.Origin{Tile: track.Tile{X: 16, Y: 0}},
			track:  platformTrack,
			trains: []sim.TrainSpec{{Cars: 1}},
		},
		{
			id:     3,
			name:   "Dodgems",
			cfg:    ride.Config{Type: ride.TypeDodgems, Mode: ride.ModeDodgems},
			origin: db.Origin{Tile: track.Tile{X: 16, Y: 6}},
			track:  platformTrack,
			trains: []sim.TrainSpec{{Cars: 2}},
		},
	}
}

func loadDemo(eng *sim.Engine, log zerolog.Logger) error {
	for _, r := range demoPark() {
		l, err := db.BuildLayout(r.origin, r.track)
		if err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		cfg := r.cfg.WithDefaults()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		if err := eng.AddRide(r.id, cfg, l); err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		for _, spec := range r.trains {
			if _, err := eng.AddTrain(r.id, spec); err != nil {
				return fmt.Errorf("%s train: %w", r.name, err)
			}
		}
		log.Info().Int32("ride", int32(r.id)).Str("name", r.name).Int("segments", l.Len()).Msg("demo ride loaded")
	}
	return nil
}

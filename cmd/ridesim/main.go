package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"ridesim/internal/audio"
	"ridesim/internal/config"
	"ridesim/internal/db"
	"ridesim/internal/metrics"
	"ridesim/internal/publisher"
	"ridesim/internal/render"
	"ridesim/internal/ride"
	"ridesim/internal/sim"
	"ridesim/internal/track"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log, closeLog := setupLogging(cfg)
	defer closeLog()

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Park database, or the built-in demo park when none is configured
	var store *db.Store
	if cfg.DatabaseURL != "" {
		sqlDB, err := openParkDB(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("park database")
		}
		defer sqlDB.Close()
		store = db.NewStore(sqlDB, log)
		if err := store.EnsureJournal(ctx); err != nil {
			log.Fatal().Err(err).Msg("event journal")
		}
	}

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.TickInterval, cfg.PublishEveryTicks, cfg.LayoutRefreshInterval)
		srv := mcol.Serve(cfg.MetricsAddr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	opts := sim.Options{
		Log:         log,
		Settings:    sim.Settings{Seed: cfg.Seed},
		Maintenance: ride.NewLogbook(),
	}
	if mcol != nil {
		opts.Metrics = mcol
	}
	if cfg.AudioEnabled {
		mixer := audio.NewMixer(0.5, log)
		if err := mixer.Start(); err != nil {
			// Non-fatal, the park runs without sound
			log.Warn().Err(err).Msg("audio disabled")
		} else {
			defer mixer.Close()
			opts.Audio = mixer
		}
	}
	if cfg.RenderTerminal {
		screen, err := startScreen(cancel)
		if err != nil {
			log.Fatal().Err(err).Msg("terminal")
		}
		defer screen.Fini()
		term := newTerminal(screen, log)
		opts.Render = term
		opts.Viewport = term
	}
	eng := sim.NewEngine(opts)

	ropts := sim.RunnerOptions{
		Log:             log,
		Interval:        cfg.TickInterval,
		PublishEvery:    cfg.PublishEveryTicks,
		RefreshInterval: cfg.LayoutRefreshInterval,
	}
	if mcol != nil {
		ropts.Metrics = mcol
	}
	if store != nil {
		if err := loadPark(ctx, eng, store, log); err != nil {
			log.Fatal().Err(err).Msg("load park")
		}
		ropts.Layouts = store
		ropts.Journal = store
	} else {
		if err := loadDemo(eng, log); err != nil {
			log.Fatal().Err(err).Msg("load demo park")
		}
	}

	// Initialize NATS publisher
	if cfg.NATSURL != "" {
		var pm publisher.PublisherMetrics
		if mcol != nil {
			pm = mcol
		}
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, pm, log)
		if err != nil {
			log.Fatal().Err(err).Msg("nats")
		}
		defer pub.Close()
		ropts.Publisher = pub
	}

	runner := sim.NewRunner(eng, ropts)
	// First refresh records the revisions the park was loaded at
	if err := runner.RefreshLayouts(ctx); err != nil {
		log.Error().Err(err).Msg("layout revisions")
	}
	runner.Start(ctx)
	log.Info().Dur("interval", cfg.TickInterval).Int("trains", len(eng.Trains())).Msg("park open")

	// Block until context cancelled
	<-ctx.Done()
	runner.Stop()
	log.Info().Uint64("tick", runner.Tick()).Msg("shutdown complete")
}

// openParkDB connects to the configured database, or with PARK set, to the
// latest published database of that park on the same cluster.
func openParkDB(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sql.DB, error) {
	finalDSN := cfg.DatabaseURL
	if cfg.Park != "" {
		// Connect to the 'postgres' database to read park_databases
		rootDSN, err := db.WithDBName(cfg.DatabaseURL, "postgres")
		if err != nil {
			return nil, fmt.Errorf("invalid base DSN: %w", err)
		}
		metaDB, err := db.Open(rootDSN)
		if err != nil {
			return nil, fmt.Errorf("open meta db: %w", err)
		}
		defer metaDB.Close()
		if err := db.Ping(ctx, metaDB); err != nil {
			return nil, fmt.Errorf("ping meta db: %w", err)
		}
		name, err := db.ResolveParkDBName(ctx, metaDB, cfg.Park)
		if err != nil {
			return nil, err
		}
		finalDSN, err = db.WithDBName(cfg.DatabaseURL, name)
		if err != nil {
			return nil, fmt.Errorf("compose DSN: %w", err)
		}
		log.Info().Str("database", name).Str("park", cfg.Park).Msg("using park database")
	}
	sqlDB, err := db.Open(finalDSN)
	if err != nil {
		return nil, fmt.Errorf("open park db: %w", err)
	}
	if err := db.Ping(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping park db: %w", err)
	}
	return sqlDB, nil
}

// loadPark registers every ride and train stored in the park database.
func loadPark(ctx context.Context, eng *sim.Engine, store *db.Store, log zerolog.Logger) error {
	rides, err := store.LoadRides(ctx)
	if err != nil {
		return err
	}
	loaded := make(map[ride.ID]bool, len(rides))
	for _, r := range rides {
		l, err := store.LoadLayout(ctx, r.ID)
		if err != nil {
			log.Warn().Err(err).Int32("ride", int32(r.ID)).Msg("skip ride")
			continue
		}
		if err := eng.AddRide(r.ID, r.Config, l); err != nil {
			log.Warn().Err(err).Int32("ride", int32(r.ID)).Msg("skip ride")
			continue
		}
		loaded[r.ID] = true
		log.Info().Int32("ride", int32(r.ID)).Str("name", r.Name).Str("type", r.Config.Type.String()).
			Str("mode", r.Config.Mode.String()).Int("segments", l.Len()).Msg("ride loaded")
	}
	trains, err := store.LoadTrains(ctx)
	if err != nil {
		return err
	}
	for _, tr := range trains {
		if !loaded[tr.Ride] {
			continue
		}
		if _, err := eng.AddTrain(tr.Ride, tr.Spec); err != nil {
			log.Warn().Err(err).Int32("ride", int32(tr.Ride)).Msg("skip train")
		}
	}
	return nil
}

func startScreen(quit context.CancelFunc) (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	go func() {
		for {
			switch ev := screen.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					quit()
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}()
	return screen, nil
}

// newTerminal centres the view on the origin tile of the park.
func newTerminal(screen tcell.Screen, log zerolog.Logger) *render.Terminal {
	return render.NewTerminal(screen, track.Position{X: -2 * track.TileSize, Y: -track.TileSize}, log)
}

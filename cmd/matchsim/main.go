// Command matchsim runs the live match simulator and its HTTP control API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/pitchside/internal/api"
	"github.com/talgya/pitchside/internal/checkpoint"
	"github.com/talgya/pitchside/internal/config"
	"github.com/talgya/pitchside/internal/domain"
	"github.com/talgya/pitchside/internal/engine"
	"github.com/talgya/pitchside/internal/logger"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/persistence"
	"github.com/talgya/pitchside/internal/session"
	"github.com/talgya/pitchside/internal/simerr"
	"github.com/talgya/pitchside/internal/tactics"
	"github.com/talgya/pitchside/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "matchsim:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		if db, err = persistence.Open(cfg.DBPath, log); err != nil {
			return err
		}
		defer db.Close()
		log.Info().Str("path", cfg.DBPath).Msg("database opened")
	}

	presets, err := loadPresets(cfg.PresetsPath)
	if err != nil {
		return err
	}
	roster := domain.NewRoster(domain.DemoTeams()...)
	wc := weather.NewClient(cfg.Weather.APIKey, cfg.Weather.Location, log)

	// ── Session ───────────────────────────────────────────────────────
	mgr, err := session.New(cfg.Session(), log)
	if err != nil {
		return err
	}
	defer mgr.Dispose()

	if cfg.Match.AutoStart {
		if err := startDemo(mgr, roster, wc, db, log); err != nil {
			return err
		}
	}

	var limiter *api.RateLimiter
	if cfg.QuickLimit > 0 {
		limiter = api.NewRateLimiter(cfg.QuickLimit, time.Minute)
	}
	srv := &api.Server{
		Manager:  mgr,
		Roster:   roster,
		Presets:  presets,
		DB:       db,
		Weather:  wc,
		Limiter:  limiter,
		AdminKey: cfg.AdminKey,
		Origins:  cfg.CORSOrigins,
		Log:      log,
	}
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Run ───────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", httpSrv.Addr).Bool("admin_auth", cfg.AdminKey != "").Msg("HTTP API starting")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if db != nil {
		g.Go(func() error { return saveOnFullTime(gctx, mgr, db, log) })
		if cfg.SaveEvery > 0 {
			g.Go(func() error { return savePeriodically(gctx, mgr, db, cfg.SaveEvery, log) })
		}
	}

	err = g.Wait()
	if db != nil {
		log.Info().Msg("final save...")
		if saveErr := save(mgr, db); saveErr != nil && simerr.CodeOf(saveErr) != simerr.CodeInvalidState {
			log.Error().Err(saveErr).Msg("final save failed")
		}
	}
	log.Info().Msg("matchsim stopped")
	return err
}

func loadPresets(path string) (tactics.Presets, error) {
	if path == "" {
		return tactics.DefaultPresets(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets: %w", err)
	}
	defer f.Close()
	return tactics.LoadPresets(f)
}

// startDemo resumes the last saved match when it was left unfinished,
// otherwise it kicks off a fresh demo fixture.
func startDemo(mgr *session.Manager, roster *domain.Roster, wc *weather.Client, db *persistence.DB, log zerolog.Logger) error {
	if db != nil {
		resumed, err := resumeLast(mgr, roster, db, log)
		if err != nil {
			log.Warn().Err(err).Msg("could not resume saved match, starting fresh")
		}
		if resumed {
			return nil
		}
	}

	home, _ := roster.Team("ars")
	away, _ := roster.Team("che")
	f := engine.Fixture{
		MatchID:   fmt.Sprintf("%s-%s-%d", home.ID, away.ID, time.Now().Unix()),
		Home:      home,
		Away:      away,
		Weather:   wc.Current(),
		KickoffAt: time.Now().UTC(),
	}
	_, err := mgr.StartMatch(f)
	return err
}

func resumeLast(mgr *session.Manager, roster *domain.Roster, db *persistence.DB, log zerolog.Logger) (bool, error) {
	id, err := db.GetMeta("last_match_id")
	if errors.Is(err, simerr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	raw, err := db.LoadBundle(id)
	if err != nil {
		return false, err
	}
	b, err := checkpoint.DecodeBundle(raw)
	if err != nil {
		return false, err
	}
	if b.State.Completed {
		return false, nil
	}

	home, ok := roster.Team(b.State.HomeTeamID)
	if !ok {
		return false, simerr.NotFound("team", b.State.HomeTeamID)
	}
	away, ok := roster.Team(b.State.AwayTeamID)
	if !ok {
		return false, simerr.NotFound("team", b.State.AwayTeamID)
	}
	f := engine.Fixture{
		MatchID:     b.State.ID,
		Home:        home,
		Away:        away,
		Weather:     b.State.Weather,
		KickoffAt:   b.State.KickoffAt,
		HomeTactics: &b.State.HomeTactics,
		AwayTactics: &b.State.AwayTactics,
	}
	if _, err := mgr.StartMatch(f); err != nil {
		return false, err
	}
	if _, err := mgr.Import(raw); err != nil {
		mgr.EndMatch()
		return false, err
	}
	log.Info().Str("match_id", b.State.ID).Int("minute", b.State.Minute).Msg("resumed saved match")
	return true, nil
}

func save(mgr *session.Manager, db *persistence.DB) error {
	b, err := mgr.Export()
	if err != nil {
		return err
	}
	return db.SaveSession(b)
}

func savePeriodically(ctx context.Context, mgr *session.Manager, db *persistence.DB, every time.Duration, log zerolog.Logger) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !mgr.Active() {
				continue
			}
			if err := save(mgr, db); err != nil {
				log.Error().Err(err).Msg("periodic save failed")
			}
		}
	}
}

// saveOnFullTime persists the session as soon as a match completes.
func saveOnFullTime(ctx context.Context, mgr *session.Manager, db *persistence.DB, log zerolog.Logger) error {
	sub, updates := mgr.Subscribe()
	defer mgr.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Event == nil || u.Event.Type != match.EventFullTime {
				continue
			}
			if err := save(mgr, db); err != nil {
				log.Error().Err(err).Str("match_id", u.Snapshot.ID).Msg("save at full time failed")
				continue
			}
			log.Info().
				Str("match_id", u.Snapshot.ID).
				Str("score", fmt.Sprintf("%d-%d", u.Snapshot.HomeGoals, u.Snapshot.AwayGoals)).
				Msg("match saved at full time")
		}
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/threefoldtech/zlock/pkg/scopelock"
	"github.com/threefoldtech/zlock/pkg/version"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"
)

// zlockstress soaks one shared exclusive lock from many workers, each
// driving its own scope guard through full sessions
// (acquire, nested scopes, release) and verifying mutual exclusion.
// Optionally one worker fails on purpose while holding the lock so the
// poison propagation path can be observed end to end.

type workerResult struct {
	Worker   int    `yaml:"worker"`
	Sessions uint   `yaml:"sessions"`
	Outcome  string `yaml:"outcome"`
}

type report struct {
	Workers          []workerResult `yaml:"workers"`
	CriticalSections uint64         `yaml:"critical_sections"`
	Violations       uint64         `yaml:"violations"`
	Elapsed          string         `yaml:"elapsed"`
}

type soaker struct {
	lock       *scopelock.PoisonMutex
	sessions   uint
	nesting    uint
	poisonAt   int
	inCritical int32
	critical   uint64
	violations uint64
}

func main() {
	app := cli.App{
		Name:    "zlockstress",
		Usage:   "soak a shared exclusive lock through per-worker scope guards",
		Version: version.Current().String(),
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "workers",
				Usage: "number of concurrent workers `N`",
				Value: 8,
			},
			&cli.UintFlag{
				Name:  "sessions",
				Usage: "guard sessions `COUNT` per worker",
				Value: 10000,
			},
			&cli.UintFlag{
				Name:  "nesting",
				Usage: "scopes `DEPTH` opened inside every session",
				Value: 3,
			},
			&cli.IntFlag{
				Name:  "poison-at",
				Usage: "`SESSION` at which worker 0 fails while holding the lock, -1 to disable",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Println(c.App.Version)
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func run(c *cli.Context) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	workers := int(c.Uint("workers"))
	if workers < 1 {
		return fmt.Errorf("at least one worker is required")
	}

	s := soaker{
		lock:     &scopelock.PoisonMutex{},
		sessions: c.Uint("sessions"),
		nesting:  c.Uint("nesting"),
		poisonAt: c.Int("poison-at"),
	}

	log.Info().
		Int("workers", workers).
		Uint("sessions", s.sessions).
		Uint("nesting", s.nesting).
		Msg("starting soak")

	results := make([]workerResult, workers)
	started := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			results[id] = s.soak(id)
		}(i)
	}
	wg.Wait()

	out := report{
		Workers:          results,
		CriticalSections: s.critical,
		Violations:       atomic.LoadUint64(&s.violations),
		Elapsed:          time.Since(started).String(),
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	if err := enc.Encode(out); err != nil {
		return err
	}

	if out.Violations > 0 {
		return fmt.Errorf("%d protocol violations detected", out.Violations)
	}
	return nil
}

// soak drives one guard through full sessions until done, the lock is
// poisoned, or this worker is the designated poisoner.
func (s *soaker) soak(id int) workerResult {
	guard := scopelock.New(s.lock)
	defer guard.Close()

	for session := uint(0); session < s.sessions; session++ {
		if id == 0 && s.poisonAt >= 0 && session == uint(s.poisonAt) {
			s.poison()
			log.Debug().Int("worker", id).Uint("session", session).Msg("poisoned the lock")
			return workerResult{Worker: id, Sessions: session, Outcome: "poisoner"}
		}

		if err := guard.Acquire(); err != nil {
			if errors.Is(err, scopelock.ErrPoisoned) {
				log.Debug().Int("worker", id).Uint("session", session).Msg("observed poisoned lock, stopping")
				return workerResult{Worker: id, Sessions: session, Outcome: "poisoned"}
			}
			log.Error().Err(err).Int("worker", id).Msg("acquire failed")
			atomic.AddUint64(&s.violations, 1)
			return workerResult{Worker: id, Sessions: session, Outcome: "failed"}
		}

		if !atomic.CompareAndSwapInt32(&s.inCritical, 0, 1) {
			log.Error().Int("worker", id).Msg("mutual exclusion violated")
			atomic.AddUint64(&s.violations, 1)
		}

		for n := uint(0); n < s.nesting; n++ {
			guard.EnterScope()
		}
		s.critical++
		for n := uint(0); n < s.nesting; n++ {
			if err := guard.ExitScope(); err != nil {
				log.Error().Err(err).Int("worker", id).Msg("scope balance broken")
				atomic.AddUint64(&s.violations, 1)
			}
		}

		atomic.StoreInt32(&s.inCritical, 0)
		if err := guard.Release(); err != nil {
			log.Error().Err(err).Int("worker", id).Msg("release failed")
			atomic.AddUint64(&s.violations, 1)
			return workerResult{Worker: id, Sessions: session, Outcome: "failed"}
		}
	}

	return workerResult{Worker: id, Sessions: s.sessions, Outcome: "completed"}
}

// poison makes worker 0 fail while holding the lock and swallows the
// re-raised panic so the worker can report what it did.
func (s *soaker) poison() {
	defer func() {
		_ = recover()
	}()
	_ = s.lock.Do(func() {
		panic("deliberate failure while holding the lock")
	})
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/internal/logging"
	"github.com/miki-przygoda/World-Sim/internal/observability"
	"github.com/miki-przygoda/World-Sim/timectrl"
	"github.com/miki-przygoda/World-Sim/world"
)

func main() {
	scenarioPath := flag.String("scenario", "", "path to a JSON scenario; empty runs the built-in two-body demo")
	duration := flag.Duration("duration", 0, "wall-clock runtime; 0 runs until interrupted")
	frame := flag.Duration("frame", 16*time.Millisecond, "frame interval of the simulation loop")
	timeScale := flag.Float64("time-scale", 60, "simulation seconds per wall second")
	startPaused := flag.Bool("start-paused", false, "do not auto-resume the world at startup")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	simCollector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise sim metrics", logging.Err(err))
		os.Exit(1)
	}
	loopCollector, err := observability.NewLoopCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise loop metrics", logging.Err(err))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	metricsSrv := serveMetrics(*metricsAddr, simCollector, log)

	scenario := loadScenario(ctx, log, *scenarioPath)
	w, err := scenario.Build(log, world.WithMetricsRecorder(simCollector))
	if err != nil {
		log.Error(ctx, "failed to build world", logging.String("scenario", scenario.Name), logging.Err(err))
		os.Exit(1)
	}
	w.Subscribe(func(e world.Event) {
		simCollector.IncEvent(e.Type.String())
	})

	if !*startPaused {
		w.Resume()
	}

	tc := timectrl.NewTimeController(time.Now().UTC(), *timeScale, timectrl.Accelerated)
	stepper := &timectrl.FixedStepper{
		DT:       scenario.Config.DT,
		MaxSteps: scenario.Config.MaxSubsteps,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, *duration)
		defer cancel()
	}

	log.Info(ctx, "starting simulation",
		logging.String("scenario", scenario.Name),
		logging.Int("bodies", w.BodyCount()),
		logging.Float64("dt", scenario.Config.DT),
		logging.Float64("time_scale", *timeScale),
		logging.Duration("frame", *frame),
	)

	runSimLoop(runCtx, w, tc, stepper, *frame, loopCollector, log)

	log.Info(ctx, "simulation complete",
		logging.Float64("sim_seconds", w.SimTime()),
		logging.Uint64("steps", w.Steps()),
		logging.Int("bodies", w.BodyCount()),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

// snapshotInterval is how often the loop logs world state. Package level
// so tests can shrink it.
var snapshotInterval = 5 * time.Second

// runSimLoop drives the world until ctx is done: each frame converts the
// elapsed wall time into simulation seconds, releases fixed steps
// through the stepper and advances the simulation clock by the time
// actually stepped.
func runSimLoop(ctx context.Context, w *world.World, tc *timectrl.TimeController, stepper *timectrl.FixedStepper, frame time.Duration, metrics *observability.LoopCollector, log logging.Logger) {
	tracer := otel.Tracer("simulator/runloop")

	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	snapshots := time.NewTicker(snapshotInterval)
	defer snapshots.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			// A paused world holds the sim clock still; wall time spent
			// paused is never owed to the physics.
			if w.Paused() {
				stepper.Reset()
				continue
			}

			_, span := tracer.Start(ctx, "sim.frame")
			frameStart := time.Now()
			steps, dropped, err := stepper.Advance(tc.SimDelta(elapsed), w.Step)
			if steps > 0 {
				tc.Advance(float64(steps) * stepper.DT)
			}
			metrics.ObserveFrame(time.Since(frameStart), steps)
			metrics.AddDroppedSimTime(dropped)
			span.SetAttributes(
				attribute.Int("sim.steps", steps),
				attribute.Float64("sim.dropped_seconds", dropped),
			)
			span.End()

			if err != nil {
				// The world pauses itself on non-finite state; there is
				// nothing left to drive. Surface it and stop the loop.
				log.Error(ctx, "world step failed, stopping simulation", logging.Err(err))
				return
			}
			if dropped > 0 {
				log.Warn(ctx, "frame over budget, discarding sim time",
					logging.Float64("dropped_seconds", dropped),
					logging.Int("steps", steps),
				)
			}

		case <-snapshots.C:
			logSnapshot(ctx, w, tc, log)
		}
	}
}

// logSnapshot prints the world summary plus one debug line per body,
// with a Kepler period estimate against the heaviest body.
func logSnapshot(ctx context.Context, w *world.World, tc *timectrl.TimeController, log logging.Logger) {
	bodies := w.Snapshot()
	log.Info(ctx, "world snapshot",
		logging.String("sim_clock", tc.Now().Format(time.RFC3339)),
		logging.Float64("sim_seconds", w.SimTime()),
		logging.Uint64("steps", w.Steps()),
		logging.Int("bodies", len(bodies)),
	)
	if len(bodies) == 0 {
		return
	}

	heaviest := bodies[0]
	for _, b := range bodies[1:] {
		if b.Mass > heaviest.Mass {
			heaviest = b
		}
	}
	for _, b := range bodies {
		fields := []logging.Field{
			logging.Uint64("body_id", uint64(b.ID)),
			logging.String("name", b.Name),
			logging.Float64("mass", b.Mass),
			logging.Float64("x", b.Position.X),
			logging.Float64("y", b.Position.Y),
			logging.Float64("z", b.Position.Z),
			logging.Float64("speed", r3.Norm(b.Velocity)),
		}
		if b.ID != heaviest.ID {
			if period, err := w.OrbitalPeriod(b.ID, heaviest.ID); err == nil {
				fields = append(fields, logging.Float64("orbital_period_s", period))
			}
		}
		log.Debug(ctx, "body state", fields...)
	}
}

// loadScenario reads the scenario file, or falls back to the built-in
// demo when no path is given. A path that fails to load is fatal.
func loadScenario(ctx context.Context, log logging.Logger, path string) *world.Scenario {
	if path == "" {
		scenario := world.DefaultScenario()
		log.Info(ctx, "no scenario given, using built-in demo", logging.String("scenario", scenario.Name))
		return scenario
	}
	scenario, err := world.LoadScenarioFile(path)
	if err != nil {
		log.Error(ctx, "failed to load scenario", logging.String("path", path), logging.Err(err))
		os.Exit(1)
	}
	log.Info(ctx, "loaded scenario",
		logging.String("path", path),
		logging.String("scenario", scenario.Name),
		logging.Int("bodies", len(scenario.Bodies)),
	)
	return scenario
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

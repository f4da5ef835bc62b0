package main

import (
	"context"
	_ "embed"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"groundlink/pkg/archive"
	"groundlink/pkg/health"
	"groundlink/pkg/log"
	"groundlink/pkg/registry"
	"groundlink/pkg/seal"
	"groundlink/pkg/server"
	"groundlink/pkg/transfer"

	"golang.org/x/sync/errgroup"
)

const (
	defaultAddr            = ":8090"
	defaultHealthInterval  = 5 * time.Second
	defaultHealthTimeout   = 2 * time.Second
	defaultStepDelay       = time.Second
	defaultStepsPerHop     = 10
	defaultWorkers         = 1
	defaultShutdownTimeout = 10 * time.Second
)

//go:embed VERSION
var Version string

func main() {
	// Initialize logger first
	_ = log.Logger

	addr := flag.String("addr", defaultAddr, "API listen address")
	stationsPath := flag.String("stations", "", "Station table YAML (built-in deployment when empty)")
	healthInterval := flag.Duration("health-interval", defaultHealthInterval, "Interval between station health refreshes")
	healthTimeout := flag.Duration("health-timeout", defaultHealthTimeout, "Timeout for a single station health probe")
	stepDelay := flag.Duration("step-delay", defaultStepDelay, "Pause before each transfer step (negative disables pacing)")
	stepsPerHop := flag.Int("steps-per-hop", defaultStepsPerHop, "Progress steps per hop")
	workers := flag.Int("workers", defaultWorkers, "Transfers processed at once")
	retention := flag.Duration("retention", 0, "Evict finished transfers after this long (0 keeps them)")
	dbPath := flag.String("db", "", "SQLite database path for archiving evicted transfers")
	failureRate := flag.Float64("failure-rate", 0, "Fraction of link steps to drop on purpose")
	seed := flag.Uint64("seed", 0, "Seed for the health and link simulations (0 picks one)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	logJSON := flag.Bool("log-json", false, "Log JSON lines instead of console output")
	shutdownTimeout := flag.Duration("shutdown-timeout", defaultShutdownTimeout, "Graceful shutdown timeout")
	flag.Parse()

	if *logJSON {
		log.SetJSONOutput(os.Stderr)
	}
	if *debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}

	if *failureRate < 0 || *failureRate > 1 {
		log.Fatal().Float64("failure_rate", *failureRate).Msg("Failure rate must be within [0, 1]")
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	stations, err := loadStations(*stationsPath)
	if err != nil {
		log.Fatal().Err(err).Str("stations", *stationsPath).Msg("Failed to load station table")
	}

	sealer, err := seal.NewRandom()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create link sealer")
	}

	var (
		store           *archive.Store
		transferArchive transfer.Archive
	)
	if *dbPath != "" {
		store, err = archive.NewStore(*dbPath)
		if err != nil {
			log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open transfer archive")
		}
		transferArchive = store

		archived, err := store.Count(context.Background())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to count archived transfers")
		}
		log.Info().Str("db", *dbPath).Int64("archived", archived).Msg("Transfer archive opened")
	}

	monitor := health.NewMonitor(stations, health.NewRandomWalk(*seed), *healthInterval, *healthTimeout)
	manager := transfer.NewManager(stations, monitor, transfer.NewSimulatedLink(sealer, *failureRate, *seed), transferArchive, transfer.Config{
		StepDelay:   *stepDelay,
		StepsPerHop: *stepsPerHop,
		Workers:     *workers,
		Retention:   *retention,
	})
	api := server.NewServer(stations, monitor, manager, *shutdownTimeout)

	log.Info().
		Str("version", strings.TrimSpace(Version)).
		Strs("stations", stations.IDs()).
		Str("hub", stations.Hub()).
		Bool("archive", transferArchive != nil).
		Msg("Starting groundlink")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor.Start()
	manager.Start(context.Background())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return api.Start(*addr)
	})
	group.Go(func() error {
		<-groupCtx.Done()

		err := api.Shutdown()
		manager.Shutdown()
		monitor.Stop()
		return err
	})

	runErr := group.Wait()
	if runErr != nil {
		log.Error().Err(runErr).Msg("Server failed")
	}

	closeArchive(store)
	if runErr != nil {
		stop()
		os.Exit(1) //nolint:gocritic // archive closed and stop called
	}

	log.Info().Msg("Shutdown complete")
}

func closeArchive(store *archive.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close transfer archive")
	}
}

func loadStations(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default(), nil
	}
	return registry.Load(path)
}

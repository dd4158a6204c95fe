package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kbukum/prefetchkit/config"
	"github.com/kbukum/prefetchkit/dataset"
	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/observability"
	"github.com/kbukum/prefetchkit/pipeline"
	"github.com/kbukum/prefetchkit/prefetch"
	"github.com/kbukum/prefetchkit/sampler"
	"github.com/kbukum/prefetchkit/sampler/redissource"
	"github.com/kbukum/prefetchkit/status"
)

const (
	keysFlag           = "keys"
	workersFlag        = "workers"
	prefetchFactorFlag = "prefetch-factor"
	timeoutFlag        = "timeout"
	delayFlag          = "delay"
	jitterFlag         = "jitter"
	failEveryFlag      = "fail-every"
	hangEveryFlag      = "hang-every"
	retriesFlag        = "retries"
	rateFlag           = "rate"
	shuffleFlag        = "shuffle"
	seedFlag           = "seed"
	stopAfterFlag      = "stop-after"
	batchFlag          = "batch"
	statusAddrFlag     = "status-addr"
	logLevelFlag       = "log-level"
)

// NewRunCommand returns the command that runs one loader session.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stream k*k for each key through a prefetching loader",
		Long: `Run draws keys from a range (or a Redis list), computes k*k for each on the
worker pool after a simulated delay, and prints "<position>\t<value>" lines in
key order. Failed items print "<position>\terror: ..." and the stream goes on.`,
		Args: cobra.NoArgs,
		RunE: run,
	}

	flags := cmd.Flags()
	flags.Int(keysFlag, 10, "number of keys a range source yields")
	flags.Int(workersFlag, 2, "worker pool size")
	flags.Int(prefetchFactorFlag, 2, "items kept in flight per worker")
	flags.Duration(timeoutFlag, 0, "per-item time bound (0 disables)")
	flags.Duration(delayFlag, 50*time.Millisecond, "simulated time per item")
	flags.Duration(jitterFlag, 0, "extra random time per item, up to this much")
	flags.Int(failEveryFlag, 0, "fail every Nth item (0 disables)")
	flags.Int(hangEveryFlag, 0, "make every Nth item block until it times out or is abandoned")
	flags.Int(retriesFlag, 1, "attempts per item, including the first")
	flags.Float64(rateFlag, 0, "maximum items started per second (0 disables)")
	flags.Bool(shuffleFlag, false, "shuffle the keys")
	flags.Uint64(seedFlag, 0, "shuffle seed")
	flags.Int(stopAfterFlag, 0, "abandon the session after N results (0 reads everything)")
	flags.Int(batchFlag, 0, "print items in groups of N (0 prints one per line)")
	flags.String(statusAddrFlag, "", "serve /healthz and /stats on this address")
	flags.String(logLevelFlag, "", "log level (debug, info, warn, error)")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, sim, o, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	logger.Init(cfg.Logging, cfg.Name)
	log := logger.GetGlobalLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			log.Warn("telemetry shutdown failed", logger.MergeWithError(nil, err))
		}
	}()

	registry := status.NewRegistry()
	if cfg.Status.Addr != "" {
		srv, err := status.Start(cfg.Status.Addr, status.NewRouter(cfg.Name, registry, log), log)
		if err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	src, err := newSource(cfg.Source, log)
	if err != nil {
		return err
	}
	defer src.Close()

	return stream(ctx, cmd.OutOrStdout(), cfg, sim, o, src, registry, log)
}

// errStopped ends the stream once --stop-after results have been printed.
var errStopped = errors.New("stop-after reached")

// output shapes what stream prints.
type output struct {
	stopAfter int
	batch     int
}

// result is one produced item and its stream position.
type result struct {
	position int
	value    int
}

// stream runs one session over src and prints its results in key order.
// Failed items print as they are reached; with output.batch set, produced
// items print grouped.
func stream(ctx context.Context, out io.Writer, cfg config.Config, sim dataset.SimulatedConfig, o output,
	src sampler.Sampler[int], registry *status.Registry, log *logger.Logger,
) error {
	produce := dataset.Simulated(sim)
	if cfg.Retry.MaxAttempts > 1 {
		produce = dataset.Retrying(produce, cfg.Retry)
	}
	if cfg.Throttle.Rate > 0 {
		produce = dataset.Throttled(produce, cfg.Throttle)
	}

	loader, err := prefetch.New(produce, cfg.Loader,
		prefetch.WithName(cfg.Name),
		prefetch.WithLogger(log),
		prefetch.WithSessionObserver(registry.Track),
		prefetch.WithSessionObserver(logSession(log)),
	)
	if err != nil {
		return err
	}
	defer loader.Close()

	printed := 0
	count := func(n int) error {
		printed += n
		if o.stopAfter > 0 && printed >= o.stopAfter {
			return errStopped
		}
		return nil
	}

	next := 0
	items := pipeline.SkipErrors(pipeline.Prefetch(pipeline.From[int](src), loader), prefetch.IsItemFailure,
		func(err error) error {
			position, _ := prefetch.FailedPosition(err)
			next = position + 1
			fmt.Fprintf(out, "%d\terror: %v\n", position, err)
			return count(1)
		})
	results := pipeline.Map(items, func(_ context.Context, v int) (result, error) {
		r := result{position: next, value: v}
		next++
		return r, nil
	})

	var runnable *pipeline.Runnable
	if o.batch > 0 {
		lines := pipeline.Collate(pipeline.Batch(results, o.batch, false), formatBatch)
		batches := 0
		runnable = pipeline.Drain(lines, func(_ context.Context, b batchLine) error {
			fmt.Fprintf(out, "batch %d\t%s\n", batches, b.text)
			batches++
			return count(b.size)
		})
	} else {
		runnable = pipeline.Drain(results, func(_ context.Context, r result) error {
			fmt.Fprintf(out, "%d\t%d\n", r.position, r.value)
			return count(1)
		})
	}

	if err := runnable.Run(ctx); err != nil && !errors.Is(err, errStopped) {
		return err
	}
	return nil
}

type batchLine struct {
	text string
	size int
}

func formatBatch(_ context.Context, batch []result) (batchLine, error) {
	fields := make([]string, len(batch))
	for i, r := range batch {
		fields[i] = fmt.Sprintf("%d=%d", r.position, r.value)
	}
	return batchLine{text: strings.Join(fields, " "), size: len(batch)}, nil
}

// logSession logs each session's outcome once it has ended.
func logSession(log *logger.Logger) prefetch.SessionObserver {
	return func(s prefetch.SessionInfo) func() {
		start := time.Now()
		return func() {
			st := s.Stats()
			log.Info("session finished", logger.MergeWithDuration(logger.Fields(
				logger.FieldSessionID, st.SessionID,
				"state", st.State,
				"retrieved", st.Retrieved,
				"failed", st.Failed,
				"abandoned", st.Submitted-st.Retrieved,
			), time.Since(start)))
		}
	}
}

func newSource(cfg config.SourceConfig, log *logger.Logger) (sampler.Sampler[int], error) {
	var src sampler.Sampler[int]
	switch cfg.Kind {
	case config.SourceRedis:
		rs, err := redissource.New(cfg.Redis, redissource.Ints, log)
		if err != nil {
			return nil, err
		}
		src = rs
	default:
		src = sampler.Counter(cfg.Keys)
	}
	if cfg.Shuffle {
		src = sampler.Shuffled(src, cfg.Seed)
	}
	return src, nil
}

// loadRunConfig loads the config file and environment, then applies any
// flags the user set explicitly.
func loadRunConfig(cmd *cobra.Command) (config.Config, dataset.SimulatedConfig, output, error) {
	var cfg config.Config
	var opts []config.LoaderOption
	if path, _ := cmd.Flags().GetString(configFlag); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	applyFlagDefaults(cmd.Flags(), &cfg)
	if err := config.Load("prefetchctl", &cfg, opts...); err != nil {
		return cfg, dataset.SimulatedConfig{}, output{}, err
	}

	flags := cmd.Flags()
	overrideInt(flags, workersFlag, &cfg.Loader.Workers)
	overrideInt(flags, prefetchFactorFlag, &cfg.Loader.PrefetchFactor)
	overrideInt(flags, keysFlag, &cfg.Source.Keys)
	overrideInt(flags, retriesFlag, &cfg.Retry.MaxAttempts)
	if flags.Changed(timeoutFlag) {
		cfg.Loader.TaskTimeout, _ = flags.GetDuration(timeoutFlag)
	}
	if flags.Changed(rateFlag) {
		cfg.Throttle.Rate, _ = flags.GetFloat64(rateFlag)
	}
	if flags.Changed(shuffleFlag) {
		cfg.Source.Shuffle, _ = flags.GetBool(shuffleFlag)
	}
	if flags.Changed(seedFlag) {
		cfg.Source.Seed, _ = flags.GetUint64(seedFlag)
	}
	if flags.Changed(statusAddrFlag) {
		cfg.Status.Addr, _ = flags.GetString(statusAddrFlag)
	}
	if flags.Changed(logLevelFlag) {
		cfg.Logging.Level, _ = flags.GetString(logLevelFlag)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, dataset.SimulatedConfig{}, output{}, err
	}

	var sim dataset.SimulatedConfig
	sim.Delay, _ = flags.GetDuration(delayFlag)
	sim.Jitter, _ = flags.GetDuration(jitterFlag)
	sim.FailEvery, _ = flags.GetInt(failEveryFlag)
	sim.HangEvery, _ = flags.GetInt(hangEveryFlag)
	var o output
	o.stopAfter, _ = flags.GetInt(stopAfterFlag)
	o.batch, _ = flags.GetInt(batchFlag)
	return cfg, sim, o, nil
}

// applyFlagDefaults seeds cfg with flag defaults so that a config file or
// environment value wins over a flag the user did not set.
func applyFlagDefaults(flags *pflag.FlagSet, cfg *config.Config) {
	cfg.Loader.Workers, _ = flags.GetInt(workersFlag)
	cfg.Loader.PrefetchFactor, _ = flags.GetInt(prefetchFactorFlag)
	cfg.Source.Keys, _ = flags.GetInt(keysFlag)
	cfg.Retry.MaxAttempts, _ = flags.GetInt(retriesFlag)
}

func overrideInt(flags *pflag.FlagSet, name string, dst *int) {
	if flags.Changed(name) {
		*dst, _ = flags.GetInt(name)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	auth "github.com/justincavery/yoga-app-sub000"
	"github.com/justincavery/yoga-app-sub000/mailer"
	"github.com/justincavery/yoga-app-sub000/store/memory"
)

// NewBenchCmd creates the bench subcommand, a load generator for the
// authorize and logout paths against the configured Redis.
func NewBenchCmd() *cobra.Command {
	var (
		tokens      int
		concurrency int
		ops         int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure Authorize and Logout latency against Redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tokens <= 0 || concurrency <= 0 || ops <= 0 {
				return oops.Code("CONFIG_INVALID").Errorf("tokens, concurrency and ops must be > 0")
			}
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runBench(cmd.Context(), cmd.OutOrStdout(), cfg, tokens, concurrency, ops)
		},
	}
	registerConfigFlags(cmd.Flags())
	cmd.Flags().IntVar(&tokens, "tokens", 1000, "access tokens to issue before measuring")
	cmd.Flags().IntVar(&concurrency, "concurrency", 64, "concurrent workers")
	cmd.Flags().IntVar(&ops, "ops", 20000, "operations per phase")
	return cmd
}

func runBench(ctx context.Context, out io.Writer, cfg daemonConfig, tokens, concurrency, ops int) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rdb, closeRedis, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	coreCfg := cfg.authConfig()
	if len(coreCfg.JWT.Secret) == 0 {
		coreCfg.JWT.Secret = []byte("bench-only-secret-0123456789abcdef")
	}
	// Hashing cost is not what this measures.
	coreCfg.Password.Memory = 8 * 1024
	coreCfg.Password.Time = 1
	coreCfg.Password.Parallelism = 1

	engine, err := auth.New().
		WithConfig(coreCfg).
		WithRedis(rdb).
		WithUserStore(memory.NewUserStore()).
		WithMailer(mailer.SenderFunc(func(context.Context, string, string, string) bool { return true })).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	const email, password = "bench@example.com", "Bench-Mark-2026"
	if _, err := engine.Register(ctx, email, password, "Bench"); err != nil {
		return err
	}

	fmt.Fprintf(out, "issuing %d tokens...\n", tokens)
	startSeed := time.Now()
	issued := make([]string, tokens)
	for i := range issued {
		res, err := engine.Login(ctx, email, password, false)
		if err != nil {
			return err
		}
		issued[i] = res.AccessToken
	}
	fmt.Fprintf(out, "issued in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authorizeStats := runPhase(ops, concurrency, func(r *rand.Rand) error {
		_, err := engine.Authorize(ctx, issued[r.Intn(len(issued))])
		return err
	})
	logoutStats := runPhase(ops, concurrency, func(r *rand.Rand) error {
		return engine.Logout(ctx, issued[r.Intn(len(issued))])
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "authorize", authorizeStats)
	printStats(out, "logout", logoutStats)
	return nil
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	s := phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
	}
	if total > 0 {
		s.opsPerS = float64(len(samples)) / total.Seconds()
	}
	return s
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

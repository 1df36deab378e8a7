// Command lruc-bench runs a synthetic workload against the cache and
// exposes optional pprof/Prometheus endpoints.
//
// Every flag default can be overridden with an LRUC_BENCH_* environment
// variable; flags take precedence over the environment.
package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanBrykalov/lruc"
	"github.com/IvanBrykalov/lruc/metrics/prom"
)

type config struct {
	Capacity int           `env:"LRUC_BENCH_CAP" envDefault:"100000"`
	Shards   int           `env:"LRUC_BENCH_SHARDS" envDefault:"0"`
	Workers  int           `env:"LRUC_BENCH_WORKERS" envDefault:"0"`
	Duration time.Duration `env:"LRUC_BENCH_DURATION" envDefault:"10s"`
	ReadPct  int           `env:"LRUC_BENCH_READS" envDefault:"80"`
	ErasePct int           `env:"LRUC_BENCH_ERASES" envDefault:"2"`
	Keys     int           `env:"LRUC_BENCH_KEYS" envDefault:"1000000"`
	ZipfS    float64       `env:"LRUC_BENCH_ZIPF_S" envDefault:"1.1"`
	ZipfV    float64       `env:"LRUC_BENCH_ZIPF_V" envDefault:"1.0"`
	Seed     int64         `env:"LRUC_BENCH_SEED" envDefault:"0"`
	Preload  int           `env:"LRUC_BENCH_PRELOAD" envDefault:"0"`

	PprofAddr   string `env:"LRUC_BENCH_PPROF" envDefault:""`
	MetricsAddr string `env:"LRUC_BENCH_HTTP" envDefault:":8080"`
}

func main() {
	logger := log.Logger{
		Level:  log.InfoLevel,
		Writer: &log.ConsoleWriter{EndWithMessage: true},
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal().Err(err).Msg("parse environment")
	}

	flag.IntVar(&cfg.Capacity, "cap", cfg.Capacity, "cache capacity (entries)")
	flag.IntVar(&cfg.Shards, "shards", cfg.Shards, "shard hint (0=auto)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "worker goroutines (0 = 2*GOMAXPROCS)")
	flag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "benchmark duration")
	flag.IntVar(&cfg.ReadPct, "reads", cfg.ReadPct, "find percentage [0..100]")
	flag.IntVar(&cfg.ErasePct, "erases", cfg.ErasePct, "erase percentage [0..100-reads]")
	flag.IntVar(&cfg.Keys, "keys", cfg.Keys, "keyspace size")
	flag.Float64Var(&cfg.ZipfS, "zipf_s", cfg.ZipfS, "Zipf s > 1 (skew)")
	flag.Float64Var(&cfg.ZipfV, "zipf_v", cfg.ZipfV, "Zipf v")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 = time-based)")
	flag.IntVar(&cfg.Preload, "preload", cfg.Preload, "preload entries (0 = cap/2)")
	flag.StringVar(&cfg.PprofAddr, "pprof", cfg.PprofAddr, "serve pprof at addr (empty = disabled)")
	flag.StringVar(&cfg.MetricsAddr, "http", cfg.MetricsAddr, "serve Prometheus metrics at addr")
	flag.Parse()

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2 * runtime.GOMAXPROCS(0)
	}

	if cfg.PprofAddr != "" {
		go func() {
			logger.Info().Str("addr", cfg.PprofAddr).Msg("pprof: serving")
			logger.Error().Err(http.ListenAndServe(cfg.PprofAddr, nil)).Msg("pprof server stopped")
		}()
	}

	metrics := prom.New(nil, "lruc", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics: serving")
		logger.Error().Err(http.ListenAndServe(cfg.MetricsAddr, nil)).Msg("metrics server stopped")
	}()

	c := lruc.New[string, string](lruc.Options[string, string]{
		Capacity: cfg.Capacity,
		Shards:   cfg.Shards,
		Metrics:  metrics,
	})
	defer func() { _ = c.Close() }()

	// Preload half capacity for a realistic hit-rate.
	preload := cfg.Preload
	if preload == 0 {
		preload = cfg.Capacity / 2
	}
	for i := 0; i < preload; i++ {
		c.Insert("k:"+strconv.Itoa(i), "v"+strconv.Itoa(i))
	}

	logger.Info().
		Int("cap", cfg.Capacity).
		Int("shards", cfg.Shards).
		Int("workers", cfg.Workers).
		Int("keys", cfg.Keys).
		Int("reads_pct", cfg.ReadPct).
		Int("erases_pct", cfg.ErasePct).
		Int64("seed", cfg.Seed).
		Dur("duration", cfg.Duration).
		Msg("starting workload")

	var finds, inserts, erases, hits uint64
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Workers)
	for w := 0; w < cfg.Workers; w++ {
		go func(id int) {
			defer wg.Done()

			// Per-worker RNG and Zipf (rand.Rand is not goroutine-safe).
			r := rand.New(rand.NewSource(cfg.Seed + int64(id)*9973))
			zipf := rand.NewZipf(r, cfg.ZipfS, cfg.ZipfV, uint64(cfg.Keys-1))
			key := func() string {
				return "k:" + strconv.FormatUint(zipf.Uint64(), 10)
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				switch p := int(r.Int31n(100)); {
				case p < cfg.ReadPct:
					atomic.AddUint64(&finds, 1)
					if _, ok := c.Find(key()); ok {
						atomic.AddUint64(&hits, 1)
					}
				case p < cfg.ReadPct+cfg.ErasePct:
					atomic.AddUint64(&erases, 1)
					c.Erase(key())
				default:
					atomic.AddUint64(&inserts, 1)
					c.Insert(key(), "v"+strconv.Itoa(r.Int()))
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	findsN := atomic.LoadUint64(&finds)
	hitsN := atomic.LoadUint64(&hits)
	ops := findsN + atomic.LoadUint64(&inserts) + atomic.LoadUint64(&erases)

	hitRate := 0.0
	if findsN > 0 {
		hitRate = float64(hitsN) / float64(findsN) * 100
	}

	stats := c.Stats()
	logger.Info().
		Uint64("ops", ops).
		Float64("ops_per_sec", float64(ops)/elapsed.Seconds()).
		Uint64("finds", findsN).
		Uint64("inserts", atomic.LoadUint64(&inserts)).
		Uint64("erases", atomic.LoadUint64(&erases)).
		Float64("hit_rate_pct", hitRate).
		Uint64("evictions", stats.Evictions).
		Int("size", c.Size()).
		Int("capacity", c.Capacity()).
		Msg("workload done")
}

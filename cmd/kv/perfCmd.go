package kv

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/cmd/util"
	"github.com/ValentinKolb/rKV/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for rKV servers",
		Long:    "Runs a set of parallel benchmarks against an rKV server and prints throughput and latency percentiles for each of them",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines per CPU to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

// benchmark is a single perf test
type benchmark struct {
	name    string
	prepare bool // set every key before the run
	op      func(key string, i int) error
}

// perfResult holds the outcome of a benchmark
type perfResult struct {
	name    string
	skipped bool
	bench   testing.BenchmarkResult
	latency gometrics.Timer
	errors  gometrics.Counter
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	config, err := util.GetClientConfig()
	if err != nil {
		return err
	}

	fmt.Println("Performance testing tool for rKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	value := []byte("test")
	largeValue := make([]byte, perfLargeValueSizeKB*1024)

	benchmarks := []benchmark{
		{name: "set", op: func(key string, _ int) error {
			return rpcStore.Set(key, value)
		}},
		{name: "set-large", op: func(key string, _ int) error {
			return rpcStore.Set(key, largeValue)
		}},
		{name: "set-ttl", op: func(key string, _ int) error {
			return rpcStore.SetE(key, value, time.Minute)
		}},
		{name: "get", prepare: true, op: func(key string, _ int) error {
			_, _, err := rpcStore.Get(key)
			return err
		}},
		{name: "has", prepare: true, op: func(key string, _ int) error {
			_, err := rpcStore.Has(key)
			return err
		}},
		{name: "has-not", op: func(key string, _ int) error {
			_, err := rpcStore.Has(key)
			return err
		}},
		{name: "delete", prepare: true, op: func(key string, _ int) error {
			_, err := rpcStore.Delete(key)
			return err
		}},
		{name: "mixed", prepare: true, op: func(key string, i int) (err error) {
			switch i % 4 {
			case 0:
				err = rpcStore.Set(key, value)
			case 1:
				_, _, err = rpcStore.Get(key)
			case 2:
				_, err = rpcStore.Delete(key)
			case 3:
				_, err = rpcStore.Has(key)
			}
			return err
		}},
	}

	results := make([]*perfResult, 0, len(benchmarks))
	for _, bm := range benchmarks {
		result := runBenchmark(bm)
		results = append(results, result)
		printResult(result)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark runs bm in parallel and records the latency of every operation.
// testing.Benchmark calls the function with growing b.N, only the last
// (longest) run is kept.
func runBenchmark(bm benchmark) *perfResult {
	result := &perfResult{name: bm.name}
	if slices.Contains(perfSkip, bm.name) {
		result.skipped = true
		return result
	}

	result.bench = testing.Benchmark(func(b *testing.B) {
		if result.latency != nil {
			result.latency.Stop()
		}
		latency := gometrics.NewTimer()
		errors := gometrics.NewCounter()
		result.latency, result.errors = latency, errors

		getKey, iter := getKeys(bm.name)

		if bm.prepare {
			iter(func(k string) {
				if err := rpcStore.Set(k, []byte("test")); err != nil {
					errors.Inc(1)
				}
			})
		}

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				_, _ = rpcStore.Delete(k)
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := bm.op(getKey(counter), counter); err != nil {
					errors.Inc(1)
				}
				latency.UpdateSince(start)
				counter++
			}
		})
	})

	if result.latency != nil {
		result.latency.Stop()
	}
	return result
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// opsPerSec returns the throughput of a benchmark result
func opsPerSec(result testing.BenchmarkResult) (nsPerOp, ops float64) {
	nsPerOp = math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	return nsPerOp, 1.0 / (nsPerOp / 1e9)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(result *perfResult) {
	if result.skipped || result.bench.N == 0 {
		fmt.Printf("%-12sskipped\n", result.name)
		return
	}

	nsPerOp, ops := opsPerSec(result.bench)
	fmt.Printf("%-12s%.0fns/op\t%.0f ops/sec\tp50=%s p99=%s max=%s errors=%d\n",
		result.name, nsPerOp, ops,
		time.Duration(result.latency.Percentile(0.5)),
		time.Duration(result.latency.Percentile(0.99)),
		time.Duration(result.latency.Max()),
		result.errors.Count(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []*perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "OpsPerSec", "P50Ns", "P99Ns", "MaxNs", "Errors", "Skipped",
		"Endpoints", "Transport", "TimeoutSec", "RetryCount",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		row := []string{result.name, "0", "0", "0", "0", "0", "0", "true"}
		if !result.skipped && result.bench.N > 0 {
			nsPerOp, ops := opsPerSec(result.bench)
			row = []string{
				result.name,
				fmt.Sprintf("%.0f", nsPerOp),
				fmt.Sprintf("%.0f", ops),
				fmt.Sprintf("%.0f", result.latency.Percentile(0.5)),
				fmt.Sprintf("%.0f", result.latency.Percentile(0.99)),
				strconv.FormatInt(result.latency.Max(), 10),
				strconv.FormatInt(result.errors.Count(), 10),
				"false",
			}
		}

		row = append(row,
			strings.Join(config.Endpoints, ";"),
			string(config.Transport),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", result.name, err)
		}
	}

	return nil
}

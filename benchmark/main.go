// Package main provides a performance benchmarking tool for the vitals CLI.
// It generates synthetic health exports of increasing size, runs the pipeline
// on each one several times per cache backend, treating the first successful run
// as cold and averaging the rest as warm, and writes CSV output for analysis.
//
// Prerequisites:
// - vitals binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where exports and benchmark databases are written
package main

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the timings of one export across cache backends.
type BenchmarkResult struct {
	Export      string
	Format      string
	Records     int
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	NoCacheRuns int
	CacheRuns   int
	Days        []int // Export sizes, in days of data
	Formats     []string
}

// samplesPerDay is the number of records generated for every day of an export.
var samplesPerDay = []struct {
	typeID string
	unit   string
	count  int
	value  func(day, i int) float64
}{
	{"HKQuantityTypeIdentifierStepCount", "count", 96, func(_, i int) float64 { return float64(50 + i%40) }},
	{"HKQuantityTypeIdentifierHeartRate", "count/min", 144, func(_, i int) float64 { return float64(60 + i%50) }},
	{"HKQuantityTypeIdentifierDietaryWater", "mL", 8, func(_, _ int) float64 { return 300 }},
	{"HKQuantityTypeIdentifierDietaryEnergyConsumed", "Cal", 5, func(_, i int) float64 { return float64(400 + 20*i) }},
	{"HKQuantityTypeIdentifierBodyMass", "kg", 1, func(day, _ int) float64 { return 80 - float64(day)*0.01 }},
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Days:        []int{30, 365, 1825},
		Formats:     []string{"xml", "zip", "csv"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the vitals binary exists and the work dir is usable
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("vitals"); err != nil {
		return fmt.Errorf("vitals binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// runBenchmarks generates every export and benchmarks it
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d sizes, %d formats, %v timeout, no-cache: %d runs, cache: %d runs\n",
		len(config.Days), len(config.Formats), config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, days := range config.Days {
		for _, format := range config.Formats {
			name := fmt.Sprintf("export_%dd", days)
			path, records, err := generateExport(config.WorkDir, name, format, days)
			if err != nil {
				fmt.Printf("Skipping %s.%s: %v\n", name, format, err)
				continue
			}
			result := runBenchmarkSuite(config, name, path, format)
			result.Records = records
			results = append(results, result)
		}
	}

	return results
}

// generateExport writes a synthetic export in the given format and returns its path and record count.
func generateExport(dir, name, format string, days int) (string, int, error) {
	path := filepath.Join(dir, name+"."+format)
	file, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = file.Close() }()

	var records int
	switch format {
	case "xml":
		records, err = writeXMLExport(file, days)
	case "csv":
		records, err = writeCSVExport(file, days)
	case "zip":
		zw := zip.NewWriter(file)
		var entry io.Writer
		if entry, err = zw.Create("apple_health_export/export.xml"); err != nil {
			return "", 0, err
		}
		if records, err = writeXMLExport(entry, days); err != nil {
			return "", 0, err
		}
		err = zw.Close()
	default:
		err = fmt.Errorf("unknown format %s", format)
	}
	return path, records, err
}

// eachSample calls fn for every synthetic sample of the export, in time order.
func eachSample(days int, fn func(typeID, unit, start, end string, value float64) error) (int, error) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("", 3600))
	const layout = "2006-01-02 15:04:05 -0700"
	records := 0
	for day := range days {
		dayStart := base.AddDate(0, 0, day)
		for _, s := range samplesPerDay {
			step := 24 * time.Hour / time.Duration(s.count)
			for i := range s.count {
				start := dayStart.Add(time.Duration(i) * step)
				end := start.Add(step / 2)
				if err := fn(s.typeID, s.unit, start.Format(layout), end.Format(layout), s.value(day, i)); err != nil {
					return records, err
				}
				records++
			}
		}
	}
	return records, nil
}

func writeXMLExport(w io.Writer, days int) (int, error) {
	if _, err := io.WriteString(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<HealthData locale=\"en_US\">\n"); err != nil {
		return 0, err
	}
	records, err := eachSample(days, func(typeID, unit, start, end string, value float64) error {
		_, err := fmt.Fprintf(w, " <Record type=%q sourceName=\"Bench\" unit=%q startDate=%q endDate=%q value=\"%g\"/>\n",
			typeID, unit, start, end, value)
		return err
	})
	if err != nil {
		return records, err
	}
	_, err = io.WriteString(w, "</HealthData>\n")
	return records, err
}

func writeCSVExport(w io.Writer, days int) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"type", "timestamp", "end", "value", "unit", "source"}); err != nil {
		return 0, err
	}
	records, err := eachSample(days, func(typeID, unit, start, end string, value float64) error {
		return cw.Write([]string{typeID, start, end, fmt.Sprintf("%g", value), unit, "Bench"})
	})
	cw.Flush()
	if err != nil {
		return records, err
	}
	return records, cw.Error()
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for an export
func runBenchmarkSuite(config BenchmarkConfig, name, path, format string) BenchmarkResult {
	fmt.Printf("Running %s (%s)\n", name, format)

	// Helper to run a benchmark phase
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, path, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Export:      name,
		Format:      format,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark runs the pipeline on an export multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, path, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	// The none store treats every client as active with no targets or vitamins.
	args := []string{"run", path, "--client", "bench", "--store-backend", "none", "--cache-backend", cacheBackend}
	if cacheBackend == "sqlite" {
		args = append(args, "--cache-db-connect", filepath.Join(config.WorkDir, "bench_cache.db"))
	}

	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("vitals", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Run completed in") && strings.Contains(outputStr, "Read ")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/vitals_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"export", "format", "records", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		row := []string{result.Export, result.Format, fmt.Sprint(result.Records), result.NoCacheTime, result.ColdTime, result.WarmTime}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-14s %-4s %9d records: No-cache: %s, Cold: %s, Warm: %s\n",
			result.Export, result.Format, result.Records, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
}

// Package main provides a performance benchmarking tool for the safeupdate CLI.
// It measures how long a full gate run takes on real Bundler projects, comparing a
// single registry worker with the default pool, and a disabled owner cache with the
// project file cache. Each phase runs several times; the first successful run is
// reported as cold and the rest are averaged as warm. Results are written to CSV.
//
// Prerequisites:
// - safeupdate binary installed and available in PATH
// - bundle available in PATH
// - Bundler projects checked out under the base directory, each with a Gemfile.lock
//
// Usage: go run benchmark/main.go [project-base-dir] [project...]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the timings of one phase on one project.
type BenchmarkResult struct {
	Project  string
	Phase    string
	ColdTime string
	WarmTime string
}

// BenchmarkPhase is one combination of flags to time.
type BenchmarkPhase struct {
	Name string
	Args []string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	ProjectBase string
	Projects    []string
	Timeout     time.Duration
	Runs        int
	Phases      []BenchmarkPhase
}

// defaultProjects are used when no project names are given.
var defaultProjects = []string{"discourse", "mastodon", "gitlabhq"}

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s [project-base-dir] [project...]\n", os.Args[0])
		os.Exit(1)
	}

	projects := defaultProjects
	if len(os.Args) > 2 {
		projects = os.Args[2:]
	}

	config := BenchmarkConfig{
		ProjectBase: os.Args[1],
		Projects:    projects,
		Timeout:     10 * time.Minute,
		Runs:        4,
		Phases: []BenchmarkPhase{
			{Name: "serial-nocache", Args: []string{"--max-threads", "1", "--cache-backend", "none"}},
			{Name: "pool-nocache", Args: []string{"--cache-backend", "none"}},
			{Name: "pool-file", Args: []string{"--cache-backend", "file"}},
		},
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

	printSummary(config, results)
}

// checkPrerequisites verifies that the binaries and projects exist
func checkPrerequisites(config BenchmarkConfig) error {
	for _, bin := range []string{"safeupdate", "bundle"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s binary not found in PATH", bin)
		}
	}

	for _, project := range config.Projects {
		lockPath := filepath.Join(config.ProjectBase, project, "Gemfile.lock")
		if _, err := os.Stat(lockPath); os.IsNotExist(err) {
			return fmt.Errorf("project %s has no Gemfile.lock at %s", project, lockPath)
		}
	}

	return nil
}

// runBenchmarks executes every phase on every project
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d projects, %d phases, %v timeout, %d runs per phase\n",
		len(config.Projects), len(config.Phases), config.Timeout, config.Runs)

	for _, project := range config.Projects {
		fmt.Printf("Benchmarking %s\n", project)
		projectPath := filepath.Join(config.ProjectBase, project)

		// Forget owner baselines so the file phase starts cold
		clearCmd := exec.Command("safeupdate", "cache", "clear", "--project-path", projectPath)
		if output, err := clearCmd.CombinedOutput(); err != nil {
			fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
		}

		for _, phase := range config.Phases {
			results = append(results, runPhase(config, project, projectPath, phase))
		}
	}

	return results
}

// runPhase times one phase and formats its cold and warm times
func runPhase(config BenchmarkConfig, project, projectPath string, phase BenchmarkPhase) BenchmarkResult {
	fmt.Printf("  %s phase (%d runs)\n", phase.Name, config.Runs)

	times := runBenchmark(config, projectPath, phase.Args)

	result := BenchmarkResult{Project: project, Phase: phase.Name, ColdTime: "TIMEOUT", WarmTime: "TIMEOUT"}
	if len(times) > 0 {
		result.ColdTime = fmt.Sprintf("%.3fs", times[0])
	}
	if len(times) > 1 {
		var sum float64
		for _, t := range times[1:] {
			sum += t
		}
		result.WarmTime = fmt.Sprintf("%.3fs", sum/float64(len(times)-1))
	}

	fmt.Printf("  Cold time: %s, Warm average: %s\n", result.ColdTime, result.WarmTime)
	return result
}

// runBenchmark runs safeupdate check config.Runs times and returns the durations of successful runs
func runBenchmark(config BenchmarkConfig, projectPath string, extraArgs []string) []float64 {
	args := append([]string{"check", "--warn-only", "--no-audit", "--color", "no", "--project-path", projectPath}, extraArgs...)

	var times []float64
	for range config.Runs {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "safeupdate", args...).CombinedOutput()
		elapsed := time.Since(start)
		cancel()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			continue
		}
		if err == nil && isSuccess(output) {
			times = append(times, elapsed.Seconds())
		}
	}
	return times
}

// isSuccess checks if the run summary was printed
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "No outdated gems found.") ||
		(strings.Contains(outputStr, "Checked") && strings.Contains(outputStr, "worker(s)"))
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/safeupdate_benchmark_%s.csv", timestamp)

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

	// Write header
	if err := writer.Write([]string{"project", "phase", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Project, result.Phase, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results grouped by phase
func printSummary(config BenchmarkConfig, results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	for i, phase := range config.Phases {
		fmt.Printf("%s. %s:\n", strconv.Itoa(i+1), phase.Name)
		for _, result := range results {
			if result.Phase == phase.Name {
				fmt.Printf("  %-12s: Cold: %s, Warm: %s\n", result.Project, result.ColdTime, result.WarmTime)
			}
		}
	}
}

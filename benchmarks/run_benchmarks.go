// Package main runs the package benchmarks and writes the results as JSON
// and Markdown.
// Run with: go run benchmarks/run_benchmarks.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const resultsDir = "benchmarks/results"

// BenchmarkResults holds all benchmark data
type BenchmarkResults struct {
	Timestamp   string           `json:"timestamp"`
	Environment Environment      `json:"environment"`
	Suites      map[string]Suite `json:"suites"`
	Summary     Summary          `json:"summary"`
}

type Environment struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPU       string `json:"cpu"`
	NumCPU    int    `json:"num_cpu"`
	GoVersion string `json:"go_version"`
}

type Suite struct {
	Package    string      `json:"package"`
	Benchmarks []Benchmark `json:"benchmarks"`
	Passed     bool        `json:"passed"`
}

type Benchmark struct {
	Name        string  `json:"name"`
	NsPerOp     float64 `json:"ns_per_op"`
	OpsPerSec   float64 `json:"ops_per_sec"`
	BytesPerOp  int64   `json:"bytes_per_op"`
	AllocsPerOp int64   `json:"allocs_per_op"`
}

// Summary picks the headline number of each suite.
type Summary struct {
	SensorReadingsPerSec float64 `json:"sensor_readings_per_sec"`
	PollsPerSec          float64 `json:"polls_per_sec"`
	RecordsPerSec        float64 `json:"records_per_sec"`
	BroadcastNs100       float64 `json:"broadcast_ns_100_subscribers"`
}

// suites maps a suite name to its benchmark pattern and package.
var suites = []struct {
	name    string
	pattern string
	pkg     string
}{
	{"sensor", "BenchmarkSensor", "./pkg/sensor"},
	{"http", "BenchmarkHTTP", "./pkg/engine"},
	{"access log", "BenchmarkStore", "./pkg/requestlog"},
	{"hub", "BenchmarkHub", "./pkg/hub"},
}

var benchLine = regexp.MustCompile(`(Benchmark[\w/]+)-\d+\s+(\d+)\s+([\d.]+)\s+ns/op\s+(\d+)\s+B/op\s+(\d+)\s+allocs/op`)

func main() {
	fmt.Println("==========================================")
	fmt.Println("   SIMMURATOR BENCHMARK SUITE")
	fmt.Println("==========================================")
	fmt.Println()

	results := BenchmarkResults{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Environment: Environment{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPU:       getCPUInfo(),
			NumCPU:    runtime.NumCPU(),
			GoVersion: runtime.Version(),
		},
		Suites: make(map[string]Suite),
	}

	for _, s := range suites {
		fmt.Printf("Running %s benchmarks...\n", s.name)
		benches, err := runBenchmarks(s.pattern, s.pkg)
		if err != nil {
			fmt.Printf("  %s: %v\n", s.name, err)
		}
		results.Suites[s.name] = Suite{Package: s.pkg, Benchmarks: benches, Passed: err == nil}
	}

	results.Summary = calculateSummary(results.Suites)

	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		fmt.Printf("Error creating %s: %v\n", resultsDir, err)
		os.Exit(1)
	}

	jsonPath := filepath.Join(resultsDir, "latest.json")
	if err := writeJSON(results, jsonPath); err != nil {
		fmt.Printf("Error writing JSON: %v\n", err)
	} else {
		fmt.Printf("\nJSON results: %s\n", jsonPath)
	}

	mdPath := filepath.Join(resultsDir, "LATEST.md")
	if err := os.WriteFile(mdPath, []byte(renderMarkdown(results)), 0o644); err != nil {
		fmt.Printf("Error writing Markdown: %v\n", err)
	} else {
		fmt.Printf("Markdown results: %s\n", mdPath)
	}

	printSummary(results.Summary)
}

func getCPUInfo() string {
	if runtime.GOOS != "linux" {
		return "unknown"
	}
	data, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return "unknown"
	}
	for _, line := range strings.Split(string(data), "\n") {
		if name, ok := strings.CutPrefix(line, "model name"); ok {
			if _, v, ok := strings.Cut(name, ":"); ok {
				return strings.TrimSpace(v)
			}
		}
	}
	return "unknown"
}

func runBenchmarks(pattern, pkg string) ([]Benchmark, error) {
	cmd := exec.Command("go", "test", "-run=^$", "-bench="+pattern, "-benchtime=2s", "-benchmem", pkg)
	output, err := cmd.CombinedOutput()
	return parseBenchmarkOutput(string(output)), err
}

func parseBenchmarkOutput(output string) []Benchmark {
	var benchmarks []Benchmark
	for _, match := range benchLine.FindAllStringSubmatch(output, -1) {
		nsPerOp, _ := strconv.ParseFloat(match[3], 64)
		bytesPerOp, _ := strconv.ParseInt(match[4], 10, 64)
		allocsPerOp, _ := strconv.ParseInt(match[5], 10, 64)

		opsPerSec := 0.0
		if nsPerOp > 0 {
			opsPerSec = 1e9 / nsPerOp
		}
		benchmarks = append(benchmarks, Benchmark{
			Name:        match[1],
			NsPerOp:     nsPerOp,
			OpsPerSec:   opsPerSec,
			BytesPerOp:  bytesPerOp,
			AllocsPerOp: allocsPerOp,
		})
	}
	return benchmarks
}

func find(s Suite, name string) (Benchmark, bool) {
	for _, b := range s.Benchmarks {
		if b.Name == name {
			return b, true
		}
	}
	return Benchmark{}, false
}

func calculateSummary(results map[string]Suite) Summary {
	var summary Summary
	if b, ok := find(results["sensor"], "BenchmarkSensor_Produce"); ok {
		summary.SensorReadingsPerSec = b.OpsPerSec
	}
	if b, ok := find(results["http"], "BenchmarkHTTP_SensorPoll"); ok {
		summary.PollsPerSec = b.OpsPerSec
	}
	if b, ok := find(results["access log"], "BenchmarkStore_Record"); ok {
		summary.RecordsPerSec = b.OpsPerSec
	}
	if b, ok := find(results["hub"], "BenchmarkHub_Broadcast/subscribers_100"); ok {
		summary.BroadcastNs100 = b.NsPerOp
	}
	return summary
}

func writeJSON(results BenchmarkResults, path string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func renderMarkdown(results BenchmarkResults) string {
	var sb strings.Builder
	title := cases.Title(language.English)

	sb.WriteString("# Simmurator Benchmark Results\n\n")
	fmt.Fprintf(&sb, "**Generated**: %s\n\n", results.Timestamp)
	sb.WriteString("## Environment\n\n")
	fmt.Fprintf(&sb, "- **OS**: %s/%s\n", results.Environment.OS, results.Environment.Arch)
	fmt.Fprintf(&sb, "- **CPU**: %s (%d cores)\n", results.Environment.CPU, results.Environment.NumCPU)
	fmt.Fprintf(&sb, "- **Go**: %s\n\n", results.Environment.GoVersion)

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Measure | Value |\n")
	sb.WriteString("|---------|-------|\n")
	fmt.Fprintf(&sb, "| Sensor readings | %.0f/s |\n", results.Summary.SensorReadingsPerSec)
	fmt.Fprintf(&sb, "| Sensor polls (in-process) | %.0f/s |\n", results.Summary.PollsPerSec)
	fmt.Fprintf(&sb, "| Access-log records | %.0f/s |\n", results.Summary.RecordsPerSec)
	fmt.Fprintf(&sb, "| Broadcast to 100 subscribers | %.2fμs |\n\n", results.Summary.BroadcastNs100/1000)

	names := make([]string, 0, len(results.Suites))
	for name := range results.Suites {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		suite := results.Suites[name]
		fmt.Fprintf(&sb, "## %s (`%s`)\n\n", title.String(name), suite.Package)
		sb.WriteString("| Benchmark | ops/sec | ns/op | B/op | allocs/op |\n")
		sb.WriteString("|-----------|---------|-------|------|----------|\n")
		for _, b := range suite.Benchmarks {
			fmt.Fprintf(&sb, "| %s | %.0f | %.0f | %d | %d |\n",
				b.Name, b.OpsPerSec, b.NsPerOp, b.BytesPerOp, b.AllocsPerOp)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Reproducing\n\n")
	sb.WriteString("```bash\n")
	sb.WriteString("go run benchmarks/run_benchmarks.go\n")
	sb.WriteString("# Or a single suite:\n")
	for _, s := range suites {
		fmt.Fprintf(&sb, "go test -run='^$' -bench=%s -benchtime=2s -benchmem %s\n", s.pattern, s.pkg)
	}
	sb.WriteString("```\n")
	return sb.String()
}

func printSummary(s Summary) {
	fmt.Println()
	fmt.Println("==========================================")
	fmt.Println("              SUMMARY")
	fmt.Println("==========================================")
	fmt.Printf("Sensor:     %.0f readings/s\n", s.SensorReadingsPerSec)
	fmt.Printf("HTTP:       %.0f polls/s\n", s.PollsPerSec)
	fmt.Printf("Access log: %.0f records/s\n", s.RecordsPerSec)
	fmt.Printf("Hub:        %.2fμs per broadcast (100 subscribers)\n", s.BroadcastNs100/1000)
	fmt.Println("==========================================")
}

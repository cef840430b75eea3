package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
)

// Metric is one recorded performance sample.
type Metric struct {
	Name  string    `json:"name"`
	Value float64   `json:"value"`
	Unit  string    `json:"unit"`
	At    time.Time `json:"at"`
}

// Monitor collects stage timings and batch throughput for the optional
// performance artifacts.
type Monitor struct {
	mu      sync.Mutex
	start   time.Time
	metrics []Metric
	batches []batchSample
}

type batchSample struct {
	files    int
	duration time.Duration
}

func NewMonitor() *Monitor {
	return &Monitor{start: time.Now()}
}

func (m *Monitor) Record(name string, value float64, unit string) {
	m.mu.Lock()
	m.metrics = append(m.metrics, Metric{Name: name, Value: value, Unit: unit, At: time.Now()})
	m.mu.Unlock()
}

// RecordBatch logs one extraction batch and returns its throughput in
// files per second.
func (m *Monitor) RecordBatch(files int, duration time.Duration) float64 {
	m.mu.Lock()
	m.batches = append(m.batches, batchSample{files: files, duration: duration})
	m.mu.Unlock()
	if duration <= 0 {
		return 0
	}
	return float64(files) / duration.Seconds()
}

// Throughput returns the overall files-per-second across recorded batches.
func (m *Monitor) Throughput() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var files int
	var total time.Duration
	for _, b := range m.batches {
		files += b.files
		total += b.duration
	}
	if total <= 0 {
		return 0
	}
	return float64(files) / total.Seconds()
}

type metricsFile struct {
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Throughput float64   `json:"throughput_files_per_sec"`
	Batches    int       `json:"batches"`
	Metrics    []Metric  `json:"metrics"`
}

// SaveMetrics writes the machine-readable performance artifact.
func (m *Monitor) SaveMetrics(path string) error {
	m.mu.Lock()
	out := metricsFile{
		StartedAt:  m.start,
		DurationMS: time.Since(m.start).Milliseconds(),
		Throughput: m.throughputLocked(),
		Batches:    len(m.batches),
		Metrics:    append([]Metric(nil), m.metrics...),
	}
	m.mu.Unlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func (m *Monitor) throughputLocked() float64 {
	var files int
	var total time.Duration
	for _, b := range m.batches {
		files += b.files
		total += b.duration
	}
	if total <= 0 {
		return 0
	}
	return float64(files) / total.Seconds()
}

// SaveAnalysis writes a short human-readable performance report.
func (m *Monitor) SaveAnalysis(path string, target float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	m.mu.Lock()
	batches := append([]batchSample(nil), m.batches...)
	elapsed := time.Since(m.start)
	m.mu.Unlock()

	throughput := m.Throughput()
	fmt.Fprintf(f, "Performance Analysis\n")
	fmt.Fprintf(f, "====================\n\n")
	fmt.Fprintf(f, "Elapsed: %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(f, "Batches: %d\n", len(batches))
	fmt.Fprintf(f, "Throughput: %.1f files/s (target %.1f)\n", throughput, target)

	var slowest batchSample
	for _, b := range batches {
		if b.duration > slowest.duration {
			slowest = b
		}
	}
	if slowest.files > 0 {
		fmt.Fprintf(f, "Slowest batch: %d files in %s\n", slowest.files, slowest.duration.Round(time.Millisecond))
	}
	if target > 0 && throughput < target*0.5 {
		fmt.Fprintf(f, "\nThroughput well below target; the source is likely on slow storage.\n")
		fmt.Fprintf(f, "Consider raising workers (max %d) or lowering batch size.\n", MaxWorkers)
	}
	return nil
}

// OptimalWorkers derives the worker count for the I/O-bound extraction
// stage: twice the core count, capped by the configured memory budget and
// clamped to the allowed bounds.
func OptimalWorkers(cfg *Config) int {
	if cfg.Workers != 0 {
		return cfg.Workers
	}
	workers := runtime.NumCPU() * 2
	if cfg.MemoryPerWorkerMB > 0 && cfg.MemoryBudgetMB > 0 {
		if byMem := cfg.MemoryBudgetMB / cfg.MemoryPerWorkerMB; byMem < workers {
			workers = byMem
		}
	}
	if workers < MinWorkers {
		workers = MinWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return workers
}

// AdjustWorkers nudges the worker count toward the throughput target between
// batches: up when well under target, down when well over.
func AdjustWorkers(current int, throughput, target float64) int {
	if target <= 0 || throughput <= 0 {
		return current
	}
	if throughput < target*0.5 && current < MaxWorkers {
		next := current + 2
		if next > MaxWorkers {
			next = MaxWorkers
		}
		return next
	}
	if throughput > target*1.5 && current > MinWorkers {
		return current - 1
	}
	return current
}

package history

import (
	"sort"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// SlowTest is one entry of the slow-test report.
type SlowTest struct {
	ID         string
	Millis     int64
	PrevMillis int64 // 0 when the test has no recorded previous duration
}

// SlowReport summarizes run durations and the tests slower than the
// threshold.
type SlowReport struct {
	P50   int64
	P95   int64
	P99   int64
	Tests []SlowTest // sorted slowest first
}

// histogram bounds: 1ms to 1h, 3 significant digits, same shape the stress
// metrics use.
const (
	histMin = 1
	histMax = 3600 * 1000
)

// AnalyzeSlow builds the slow-test report. A test is slow when its duration
// exceeds thresholdMs. prev supplies previous-run durations for deltas.
func AnalyzeSlow(durations map[string]float64, thresholdMs int64, prev map[string]float64) *SlowReport {
	hist := hdrhistogram.New(histMin, histMax, 3)

	type timing struct {
		id string
		ms int64
	}
	timings := make([]timing, 0, len(durations))
	for id, seconds := range durations {
		ms := int64(seconds * 1000)
		timings = append(timings, timing{id: id, ms: ms})
		if ms < histMin {
			ms = histMin
		}
		if ms > histMax {
			ms = histMax
		}
		_ = hist.RecordValue(ms)
	}

	report := &SlowReport{
		P50: hist.ValueAtQuantile(50),
		P95: hist.ValueAtQuantile(95),
		P99: hist.ValueAtQuantile(99),
	}

	for _, t := range timings {
		if t.ms <= thresholdMs {
			continue
		}
		slow := SlowTest{ID: t.id, Millis: t.ms}
		if p, ok := prev[t.id]; ok {
			slow.PrevMillis = int64(p * 1000)
		}
		report.Tests = append(report.Tests, slow)
	}

	sort.Slice(report.Tests, func(i, j int) bool {
		if report.Tests[i].Millis != report.Tests[j].Millis {
			return report.Tests[i].Millis > report.Tests[j].Millis
		}
		return report.Tests[i].ID < report.Tests[j].ID
	})
	return report
}

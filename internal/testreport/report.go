// Package testreport builds test reports from the JSON event stream written
// by `cargo test -- -Z unstable-options --format json --report-time`.
package testreport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Status is the outcome of a single test.
type Status string

// Test outcomes.
const (
	StatusPassed  Status = "Passed"
	StatusFailed  Status = "Failed"
	StatusIgnored Status = "Ignored"
	StatusTimeout Status = "Timeout"
)

// statusFromEvent maps a libtest event name to a Status.
func statusFromEvent(event string) (Status, bool) {
	switch event {
	case "ok":
		return StatusPassed, true
	case "failed":
		return StatusFailed, true
	case "ignored":
		return StatusIgnored, true
	case "timeout":
		return StatusTimeout, true
	default:
		return "", false
	}
}

// Case is one test result.
type Case struct {
	Name         string  `json:"name" yaml:"name"`
	Module       string  `json:"module" yaml:"module"`
	Status       Status  `json:"status" yaml:"status"`
	DurationSecs float64 `json:"duration_secs" yaml:"duration_secs"`
	ErrorMessage string  `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// Summary aggregates a report.
type Summary struct {
	Total        int     `json:"total" yaml:"total"`
	Passed       int     `json:"passed" yaml:"passed"`
	Failed       int     `json:"failed" yaml:"failed"`
	Ignored      int     `json:"ignored" yaml:"ignored"`
	Timeout      int     `json:"timeout" yaml:"timeout"`
	SuccessRate  float64 `json:"success_rate" yaml:"success_rate"`
	DurationSecs float64 `json:"duration_secs" yaml:"duration_secs"`
}

// Report is a summary plus its test cases in input order.
type Report struct {
	Summary Summary `json:"summary" yaml:"summary"`
	Cases   []Case  `json:"test_cases" yaml:"test_cases"`
}

// Recount recomputes the summary counts and success rate from Cases. The
// duration is left as it is.
func (r *Report) Recount() {
	s := Summary{Total: len(r.Cases), DurationSecs: r.Summary.DurationSecs}

	for _, c := range r.Cases {
		switch c.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusIgnored:
			s.Ignored++
		case StatusTimeout:
			s.Timeout++
		}
	}

	if s.Total > 0 {
		s.SuccessRate = float64(s.Passed) / float64(s.Total) * 100
	}

	r.Summary = s
}

// FailedCases returns the failed test cases.
func (r *Report) FailedCases() []Case {
	var out []Case

	for _, c := range r.Cases {
		if c.Status == StatusFailed {
			out = append(out, c)
		}
	}

	return out
}

// ModuleOf returns the module path of a test name, or "unknown".
func ModuleOf(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[:i]
	}

	return "unknown"
}

type event struct {
	Type     string  `json:"type"`
	Event    string  `json:"event"`
	Name     string  `json:"name"`
	ExecTime float64 `json:"exec_time"`
	Stdout   string  `json:"stdout"`
}

// Parse reads a libtest JSON event stream. Lines that are not JSON objects,
// or not test results, are skipped. The duration is the sum of the suite
// execution times, or of the test times when no suite reported one.
func Parse(r io.Reader) (*Report, error) {
	rep := &Report{}

	var suiteTime, testTime float64

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var ev event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "suite":
			suiteTime += ev.ExecTime
		case "test":
			status, ok := statusFromEvent(ev.Event)
			if !ok || ev.Name == "" {
				continue
			}

			c := Case{
				Name:         ev.Name,
				Module:       ModuleOf(ev.Name),
				Status:       status,
				DurationSecs: ev.ExecTime,
			}

			if status == StatusFailed {
				c.ErrorMessage = ev.Stdout
			}

			testTime += ev.ExecTime
			rep.Cases = append(rep.Cases, c)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading test events: %w", err)
	}

	rep.Summary.DurationSecs = suiteTime
	if suiteTime == 0 {
		rep.Summary.DurationSecs = testTime
	}

	rep.Recount()

	return rep, nil
}

// Merge combines reports from several test runs. Cases are de-duplicated by
// name in first-seen order; a failed or timed out result replaces an earlier
// one. Durations are summed.
func Merge(reports ...*Report) *Report {
	merged := &Report{}
	index := make(map[string]int)

	for _, r := range reports {
		if r == nil {
			continue
		}

		merged.Summary.DurationSecs += r.Summary.DurationSecs

		for _, c := range r.Cases {
			i, seen := index[c.Name]
			if !seen {
				index[c.Name] = len(merged.Cases)
				merged.Cases = append(merged.Cases, c)

				continue
			}

			if c.Status == StatusFailed || c.Status == StatusTimeout {
				merged.Cases[i] = c
			}
		}
	}

	merged.Recount()

	return merged
}

// Load reads a JSON report written by the json formatter.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided by design
	if err != nil {
		return nil, err
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}

	return &r, nil
}

// LoadAll reads reports concurrently. Unreadable reports are logged and
// skipped; the rest keep the order of paths.
func LoadAll(paths []string, logger *slog.Logger) []*Report {
	if logger == nil {
		logger = slog.Default()
	}

	loaded := make([]*Report, len(paths))

	var g errgroup.Group

	g.SetLimit(8)

	for i, path := range paths {
		g.Go(func() error {
			r, err := Load(path)
			if err != nil {
				logger.Warn("skipping report", slog.String("path", path), slog.Any("error", err))
				return nil
			}

			loaded[i] = r

			return nil
		})
	}

	_ = g.Wait()

	out := make([]*Report, 0, len(loaded))

	for _, r := range loaded {
		if r != nil {
			out = append(out, r)
		}
	}

	return out
}

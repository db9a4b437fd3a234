package release

import (
	"context"
	"strings"
	"sync"

	"github.com/hupe1980/cidev/internal/command"
)

type result struct {
	out string
	err error
}

// scriptedRunner answers commands from a table keyed by the full command
// line. Unknown commands fail like git does for a bad revision.
type scriptedRunner struct {
	mu        sync.Mutex
	responses map[string]result
	calls     []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{responses: make(map[string]result)}
}

func (s *scriptedRunner) on(cmdline, out string) *scriptedRunner {
	s.responses[cmdline] = result{out: out}
	return s
}

func (s *scriptedRunner) fail(cmdline string, code int) *scriptedRunner {
	s.responses[cmdline] = result{err: &command.Error{Args: strings.Fields(cmdline), ExitCode: code}}
	return s
}

func (s *scriptedRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, cmdline)

	if r, ok := s.responses[cmdline]; ok {
		return r.out, r.err
	}

	return "", &command.Error{Args: append([]string{name}, args...), Stderr: "unexpected command", ExitCode: 128}
}

func (s *scriptedRunner) called(cmdline string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.calls {
		if c == cmdline {
			return true
		}
	}

	return false
}

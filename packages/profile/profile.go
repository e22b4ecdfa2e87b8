// Package profile provides a scoped CPU-profiling session around the
// delegated test run.
package profile

import (
	"fmt"
	"os"
	"runtime/pprof"
)

// Session is an active CPU profile. Stop must run on every exit path; it is
// safe to call more than once.
type Session struct {
	file    *os.File
	stopped bool
}

// Start begins CPU profiling, writing the dump to path.
func Start(path string) (*Session, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("starting CPU profile: %w", err)
	}
	return &Session{file: f}, nil
}

// Stop disables profiling and flushes the dump.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true
	pprof.StopCPUProfile()
	return s.file.Close()
}

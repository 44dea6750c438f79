package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Status is a point-in-time snapshot of the running session.
type Status struct {
	Time         time.Time `json:"time"`
	SessionState string    `json:"sessionState"`
	Interrupted  bool      `json:"interrupted"`
	HistoryLen   int       `json:"historyLen"`
	LanePending  int       `json:"lanePending"`
	LastError    string    `json:"lastError,omitempty"`
}

// StatusWriter receives periodic snapshots, e.g. the Influx manager.
type StatusWriter interface {
	WriteSessionStatus(state string, historyLen, lanePending int, at time.Time) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger *slog.Logger
	// Snapshot builds the current status; Time is filled in by the service.
	Snapshot   func() Status
	Writer     StatusWriter
	StatusFile string
	Interval   time.Duration
	Now        func() time.Time
}

// Service periodically publishes session status
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current status and its rendering for the
// status file.
func (s *Service) GetProgramStatus() (output []string, status Status) {
	status = s.deps.Snapshot()
	status.Time = s.deps.Now()

	raw, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(raw))
	return output, status
}

// Tick publishes one snapshot.
func (s *Service) Tick() {
	lines, status := s.GetProgramStatus()

	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, lines); err != nil {
			s.deps.Logger.Error("Error writing status file", "error", err)
		}
	}

	if s.deps.Writer != nil {
		err := s.deps.Writer.WriteSessionStatus(status.SessionState, status.HistoryLen, status.LanePending, status.Time)
		if err != nil {
			s.deps.Logger.Error("Error writing session status", "error", err)
		}
	}
}

func writeStatusFile(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.deps.Snapshot == nil {
		return fmt.Errorf("monitor: no snapshot function")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}

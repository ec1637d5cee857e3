package event

import "time"

// Publish outcomes reported to the Recorder.
const (
	OutcomeAccepted  = "accepted"
	OutcomeUnchanged = "unchanged"
	OutcomeInvalid   = "invalid"
)

const (
	defaultMaxCascadeDepth = 5
	defaultRetryAttempts   = 3

	minHistoryPageSize     = 5
	maxHistoryPageSize     = 100
	defaultHistoryPageSize = 50
)

// Option configures a Service.
type Option func(*Service)

// WithMaxCascadeDepth bounds how many automatic events may chain off a publish.
func WithMaxCascadeDepth(depth int) Option {
	return func(s *Service) { s.maxCascadeDepth = depth }
}

// WithRetryAttempts sets how often a publish is re-evaluated after losing an
// optimistic concurrency race.
func WithRetryAttempts(attempts int) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRecorder reports publish outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// HistoryQuery selects a page of event history.
type HistoryQuery struct {
	AppID    string
	UserID   string
	StudyID  string
	EventID  string
	Offset   int
	PageSize int
}

package pagination

// RunState holds the counters of a single run. It is owned by the goroutine
// driving the Sequencer and is never shared, so it carries no lock.
type RunState struct {
	// RequestCount is the number of listing requests that returned a page.
	// The next request starts at RequestCount * pageSize.
	RequestCount int

	// TotalProcessed is the number of records examined across the run.
	TotalProcessed int

	// LastBatchSize is the record count of the most recent page.
	LastBatchSize int

	stopped bool
}

// NewRunState returns the state for a fresh run.
func NewRunState() *RunState {
	return &RunState{}
}

// Offset returns the start offset of the next listing request.
func (s *RunState) Offset(pageSize int) int {
	return s.RequestCount * pageSize
}

// Stop ends pagination: no further records are emitted and no further
// listing request is issued.
func (s *RunState) Stop() {
	s.stopped = true
}

// Stopped reports whether Stop was called.
func (s *RunState) Stopped() bool {
	return s.stopped
}

// Exhausted reports whether the most recent page came back empty.
func (s *RunState) Exhausted() bool {
	return s.RequestCount > 0 && s.LastBatchSize == 0
}

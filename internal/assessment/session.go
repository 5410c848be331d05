package assessment

import (
	"context"
	"errors"
	"sync"

	"github.com/gambia-creative/assessment/internal/aggregator"
	"github.com/gambia-creative/assessment/internal/analyzer"
)

var ErrSessionClosed = errors.New("session already finalized")

// Session folds units for one entity as they arrive. Snapshots are finalized
// copies; the running summary keeps accumulating until Finalize.
type Session struct {
	svc     *Service
	mu      sync.Mutex
	summary *aggregator.EntitySummary
	closed  bool
}

func (s *Service) NewSession(entityID string) *Session {
	return &Session{svc: s, summary: aggregator.NewEntitySummary(entityID)}
}

func (s *Session) EntityID() string {
	return s.summary.EntityID
}

// Fold analyzes one unit and returns its theme scores.
func (s *Session) Fold(unit analyzer.TextUnit) (map[string]analyzer.ThemeScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	return s.svc.foldUnit(SourceStream, s.summary, unit), nil
}

// Snapshot returns the summary so far without ending the session.
func (s *Session) Snapshot() *aggregator.EntitySummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summary.Finalize()
	return s.summary.Clone()
}

// Finalize stores the summary and closes the session.
func (s *Session) Finalize(ctx context.Context) (*aggregator.EntitySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	s.summary.Finalize()
	if err := s.svc.SaveSummary(ctx, s.summary); err != nil {
		return nil, err
	}
	s.closed = true
	return s.summary.Clone(), nil
}

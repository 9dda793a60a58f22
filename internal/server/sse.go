package server

// sse.go - Live progress over server-sent events

import (
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/lumagraph-labs/lumagraph/internal/batch"
	"github.com/lumagraph-labs/lumagraph/internal/engine"
)

// progressSignals is the signal payload patched into the client on every
// progress change.
type progressSignals struct {
	Run   engine.State     `json:"run"`
	Batch []batch.Progress `json:"batch"`
}

// handleProgressSSE is the long-lived progress endpoint. The client gets
// the current state immediately, then a fresh snapshot on every notifier
// ping until it disconnects.
func (s *Server) handleProgressSSE(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	if err := s.sendProgress(sse); err != nil {
		_ = sse.ConsoleError(err)
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				// Notifier closed: server is shutting down.
				return
			}
			if err := s.sendProgress(sse); err != nil {
				_ = sse.ConsoleError(err)
				return
			}
		}
	}
}

func (s *Server) sendProgress(sse *datastar.ServerSentEventGenerator) error {
	signals := progressSignals{Run: s.engine.State()}
	if s.batch != nil {
		signals.Batch = s.batch.Active()
	}
	return sse.MarshalAndPatchSignals(signals)
}

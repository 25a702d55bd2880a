package store

import (
	"context"
	"fmt"
)

// BatchState summarizes one batch of transitions for the log view.
type BatchState struct {
	Batch       string
	Transitions []Transition
	FirstSeq    int64
	LastSeq     int64
	Committed   int // transitions with status OK
	Rejected    int
	// LastStatus is the status of the final transition, empty for an unknown batch.
	LastStatus string
}

// GetBatchState returns every transition in a batch with commit counts.
func (s *Store) GetBatchState(ctx context.Context, batch string) (BatchState, error) {
	state := BatchState{Batch: batch}

	transitions, err := s.ReadTransitions(ctx, TransitionFilter{Batch: batch})
	if err != nil {
		return state, fmt.Errorf("get batch state: %w", err)
	}
	state.Transitions = transitions

	for i, t := range transitions {
		if i == 0 {
			state.FirstSeq = t.Seq
		}
		state.LastSeq = t.Seq
		if t.Status == "OK" {
			state.Committed++
		} else {
			state.Rejected++
		}
	}
	if n := len(transitions); n > 0 {
		state.LastStatus = transitions[n-1].Status
	}
	return state, nil
}

// ListBatches returns batch IDs in order of their first transition.
func (s *Store) ListBatches(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch FROM transitions
		GROUP BY batch
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	batches := []string{}
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

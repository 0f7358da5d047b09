package engine

import (
	"context"
	"sync"

	"github.com/pathprobe/pathprobe/logger"
	"github.com/pathprobe/pathprobe/persona"
)

// DefaultConcurrency runs personas one at a time. Pathway chat sessions are
// rate limited upstream, so parallelism is opt-in.
const DefaultConcurrency = 1

// BatchResult collects per-persona outcomes of a batch run. A persona whose
// conversation failed appears in Errors instead of Results.
type BatchResult struct {
	Results []*ConversationResult
	Errors  map[string]error
}

// Failed reports how many personas did not produce a result.
func (b *BatchResult) Failed() int {
	return len(b.Errors)
}

// RunAll executes a conversation for every persona using a bounded worker
// pool. One persona failing does not stop the others; its error is recorded
// under its persona ID.
func (r *Runner) RunAll(ctx context.Context, personas []persona.Persona, pathwayID string, concurrency int, opts RunOptions) *BatchResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*ConversationResult, len(personas))
	runErrs := make([]error, len(personas))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	logger.Info("🚀 Running conversations",
		"personas", len(personas),
		"pathway_id", pathwayID,
		"concurrency", concurrency)

	for i := range personas {
		wg.Add(1)
		go func(idx int, p persona.Persona) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			result, err := r.Run(ctx, &p, pathwayID, opts)

			mu.Lock()
			results[idx] = result
			runErrs[idx] = err
			mu.Unlock()
		}(i, personas[i])
	}

	wg.Wait()

	batch := &BatchResult{Errors: make(map[string]error)}
	for i, err := range runErrs {
		if err != nil {
			logger.Error("❌ Conversation failed", "persona_id", personas[i].PersonaID, "error", err)
			batch.Errors[personas[i].PersonaID] = err
			continue
		}
		batch.Results = append(batch.Results, results[i])
	}

	return batch
}

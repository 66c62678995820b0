package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/pandanite/foundation/blockchain/executor"
	"github.com/google/uuid"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the next block on top of the tip with the best
// transactions from the mempool.
func (w *Worker) runMiningOperation() {
	traceID := uuid.NewString()

	w.evHandler("worker: runMiningOperation: MINING: started: traceid[%s]", traceID)
	defer w.evHandler("worker: runMiningOperation: MINING: completed: traceid[%s]", traceID)

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested: traceid[%s]", traceID)
		case <-w.shut:
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		block, err := w.state.MineNewBlock(ctx)
		duration := time.Since(t)

		w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]: traceid[%s]", duration, traceID)

		var statusErr *executor.StatusError

		switch {
		case err == nil:
			w.evHandler("worker: runMiningOperation: MINING: SOLVED: block[%s]: traceid[%s]", block, traceID)
			w.SignalStartMining()

		case ctx.Err() != nil:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete: traceid[%s]", traceID)

		case errors.As(err, &statusErr):
			// The tip moved while the puzzle was being solved.
			w.evHandler("worker: runMiningOperation: MINING: REJECTED: %s: traceid[%s]", err, traceID)
			w.SignalStartMining()

		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s: traceid[%s]", err, traceID)
		}
	}()

	// Wait for both G's to terminate.
	wg.Wait()
}

package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Runner launches pipeline runs in the background, one per claimed product.
// Claims go through the store so concurrent API instances never run the
// same product twice.
type Runner struct {
	pipe *Pipeline
	wg   sync.WaitGroup
}

func NewRunner(pipe *Pipeline) *Runner {
	return &Runner{pipe: pipe}
}

// Start claims the product and, when the claim wins, runs the pipeline in a
// background goroutine. Returns false without starting anything when the
// product is already processing or completed.
//
// The run uses a fresh background context so it outlives the HTTP request
// that triggered it.
func (r *Runner) Start(ctx context.Context, productID, productName string) (bool, error) {
	claimed, err := r.pipe.store.ClaimProduct(ctx, productID)
	if err != nil || !claimed {
		return false, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		runCtx := context.Background()
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("pipeline run panicked",
					zap.String("product_id", productID),
					zap.Any("panic", rec))
				r.pipe.recordFailure(runCtx, productID, fmt.Sprintf("panic: %v", rec))
			}
		}()

		_ = r.pipe.Run(runCtx, productID, productName)
	}()
	return true, nil
}

// Wait blocks until all in-flight runs finish. Called during shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}

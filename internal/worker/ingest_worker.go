package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/service"
)

const dequeueTimeout = 5 * time.Second

// IngestWorker drains the ingest queue and runs the pipeline for each
// document id it receives.
type IngestWorker struct {
	queue  *service.IngestQueue
	ingest *service.IngestService
	logger *slog.Logger
}

func NewIngestWorker(queue *service.IngestQueue, ingest *service.IngestService) *IngestWorker {
	return &IngestWorker{
		queue:  queue,
		ingest: ingest,
		logger: slog.Default().With("component", "ingest-worker"),
	}
}

// Start runs count worker loops and blocks until the context is cancelled and
// every loop has drained.
func (w *IngestWorker) Start(ctx context.Context, count int) error {
	if count < 1 {
		count = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		id := i
		g.Go(func() error {
			return w.loop(ctx, id)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *IngestWorker) loop(ctx context.Context, id int) error {
	logger := w.logger.With("worker", id)
	logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopping")
			return ctx.Err()
		default:
		}

		docID, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if errors.Is(err, service.ErrQueueEmpty) {
				continue
			}
			if ctx.Err() != nil {
				logger.Info("worker stopping")
				return ctx.Err()
			}
			logger.Error("dequeue failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		logger.Info("processing document", "document_id", docID)
		result, err := w.ingest.IngestDocument(ctx, docID)
		if err != nil {
			// The pipeline already marked the document failed; the task is
			// not retried automatically.
			logger.Error("ingestion failed", "document_id", docID, "error", err)
			continue
		}
		logger.Info("document indexed",
			"document_id", docID,
			"chunks", result.ChunksProcessed,
			"namespace", result.Namespace)
	}
}

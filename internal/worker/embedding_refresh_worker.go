package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"marvel-rag/internal/model"
	"marvel-rag/internal/observability"
	"marvel-rag/internal/platform/rabbitmq"
)

var ErrUnknownCollection = errors.New("unknown collection")

// Refresher re-embeds documents of one collection.
type Refresher interface {
	Collection() string
	RefreshEmbeddings(ctx context.Context, ids []string) (int, error)
}

// EmbeddingRefreshWorker consumes RefreshEvents and hands them to the
// Refresher registered for the event's collection.
type EmbeddingRefreshWorker struct {
	conn       *amqp.Connection
	queueName  string
	refreshers map[string]Refresher
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEmbeddingRefreshWorker(conn *amqp.Connection, queueName string, logger *zap.Logger, refreshers ...Refresher) *EmbeddingRefreshWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	byCollection := make(map[string]Refresher, len(refreshers))
	for _, r := range refreshers {
		byCollection[r.Collection()] = r
	}
	return &EmbeddingRefreshWorker{
		conn:       conn,
		queueName:  queueName,
		refreshers: byCollection,
		logger:     logger,
	}
}

func (w *EmbeddingRefreshWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// Handle processes one queued payload. A non-nil error means the message
// should be dropped.
func (w *EmbeddingRefreshWorker) Handle(ctx context.Context, body []byte) error {
	var event model.RefreshEvent
	if err := json.Unmarshal(body, &event); err != nil {
		w.logger.Error("decode refresh event failed", zap.Error(err))
		return fmt.Errorf("decode refresh event: %w", err)
	}

	if event.TraceID != "" {
		ctx = observability.WithTraceID(ctx, event.TraceID)
	}
	logger := observability.Logger(ctx, w.logger).With(
		zap.String("collection", event.Collection),
		zap.Strings("ids", event.IDs),
	)

	refresher, ok := w.refreshers[event.Collection]
	if !ok {
		logger.Error("refresh event for unknown collection")
		return fmt.Errorf("%w: %s", ErrUnknownCollection, event.Collection)
	}

	n, err := refresher.RefreshEmbeddings(ctx, event.IDs)
	if err != nil {
		logger.Error("refresh embeddings failed", zap.Error(err))
		return err
	}
	logger.Info("embeddings refreshed", zap.Int("written", n))
	return nil
}

func (w *EmbeddingRefreshWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

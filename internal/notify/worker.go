package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Worker consumes committed-transfer notifications. It never mutates
// ledger state; it only observes what already committed.
type Worker struct {
	client *redis.Client
	stopCh chan struct{}
}

// NewWorker creates a new Worker over client.
func NewWorker(client *redis.Client) *Worker {
	return &Worker{
		client: client,
		stopCh: make(chan struct{}),
	}
}

// Run consumes CommittedListKey in a blocking loop until ctx is cancelled
// or Stop is called.
func (w *Worker) Run(ctx context.Context) {
	log.Println("notification feed worker started, listening for committed transfers...")

	for {
		select {
		case <-ctx.Done():
			log.Println("notification feed worker stopping due to context cancellation")
			return
		case <-w.stopCh:
			log.Println("notification feed worker stopping due to stop signal")
			return
		default:
			result, err := w.client.BLPop(ctx, 5*time.Second, CommittedListKey).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				log.Printf("error reading from notification feed: %v", err)
				time.Sleep(time.Second)
				continue
			}

			if len(result) < 2 {
				continue
			}
			w.handle(result[1])
		}
	}
}

// Stop signals the worker to stop consuming.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) handle(data string) {
	var msg CommittedMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		log.Printf("failed to unmarshal notification: %v", err)
		return
	}
	log.Printf("transfer %s committed at %s", msg.TransactionID, msg.CommittedAt)
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vidsage-backend/internal/pipeline"
)

// QueueName is the redis list video submissions are dispatched on.
const QueueName = "queue:video-processing"

// QueuedJob is the envelope pushed by the submit handler and popped by
// workers.
type QueuedJob struct {
	JobID uuid.UUID `json:"job_id"`
}

// Pool consumes queued video jobs and runs each one through the
// processing pipeline. One worker drives one job at a time, so a job's
// steps always execute sequentially.
type Pool struct {
	redis       *redis.Client
	pipeline    *pipeline.Pipeline
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, p *pipeline.Pipeline, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		pipeline:    p,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, QueueName).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var queued QueuedJob
		if err := json.Unmarshal([]byte(result[1]), &queued); err != nil {
			log.Printf("Worker %d: failed to parse queued job: %v", id, err)
			continue
		}

		// Lock so a re-enqueued duplicate cannot run concurrently.
		lockKey := fmt.Sprintf("job_lock:%s", queued.JobID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s", id, queued.JobID)

		if err := p.pipeline.Process(ctx, queued.JobID); err != nil {
			if errors.Is(err, pipeline.ErrJobLoad) {
				// Nothing transitioned yet, so the job would otherwise
				// stay pending forever. Pause before requeueing so a
				// store outage does not spin the queue.
				log.Printf("Worker %d: could not load job %s, requeueing: %v", id, queued.JobID, err)
				time.Sleep(5 * time.Second)
				p.redis.RPush(ctx, QueueName, result[1])
			} else {
				// The pipeline already recorded the terminal failure.
				log.Printf("Worker %d: job %s ended with error: %v", id, queued.JobID, err)
			}
		}

		p.redis.Del(ctx, lockKey)
	}
}

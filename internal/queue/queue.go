// Package queue distributes bucket checks between workers through redis
// lists.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	PAILFROG_JOB_QUEUE_TODO    = "pailfrog:jobs:todo"
	PAILFROG_JOBS_IN_PROGRESS  = "pailfrog:jobs:in-progress"
	PAILFROG_JOB_QUEUE_DONE    = "pailfrog:jobs:done"
	PAILFROG_WORKERS           = "pailfrog:workers"
	PAILFROG_WORKER_ALIVE_BASE = "pailfrog:workers:alive"
	PAILFROG_WORKER_STATS_BASE = "pailfrog:workers:stats"
)

// WORKER_TTL is how long a worker counts as alive after its last heartbeat.
const WORKER_TTL = STATS_TTL

var ErrQueueEmpty = errors.New("job queue is empty")

type Job struct {
	JobId         string    `json:"job_id"`
	Domain        string    `json:"domain"`
	Provider      string    `json:"provider"`
	Status        string    `json:"status,omitempty"`
	JobSubmitTime time.Time `json:"submitted"`
	JobDoneTime   time.Time `json:"done,omitempty"`

	// raw is the exact list entry the job was read from
	raw string
}

func NewJob(domain, provider string) *Job {
	return &Job{
		JobId:         uuid.NewString(),
		Domain:        domain,
		Provider:      provider,
		Status:        "todo",
		JobSubmitTime: time.Now().UTC(),
	}
}

// Queue is one worker's view of the job lists. Every worker keeps its
// claimed jobs in its own in-progress list so that a dead worker's jobs can
// be told apart from the ones still being checked.
type Queue struct {
	rdb    *redis.Client
	worker string
}

func New(rdb *redis.Client, worker string) *Queue {
	return &Queue{rdb: rdb, worker: worker}
}

func InProgressKey(worker string) string {
	return fmt.Sprintf("%s:%s", PAILFROG_JOBS_IN_PROGRESS, worker)
}

func AliveKey(worker string) string {
	return fmt.Sprintf("%s:%s", PAILFROG_WORKER_ALIVE_BASE, worker)
}

func (q *Queue) Worker() string {
	return q.worker
}

// Heartbeat registers the worker and marks it alive for WORKER_TTL.
func (q *Queue) Heartbeat(ctx context.Context) error {
	pipe := q.rdb.Pipeline()
	pipe.SAdd(ctx, PAILFROG_WORKERS, q.worker)
	pipe.Set(ctx, AliveKey(q.worker), time.Now().UTC().Format(time.RFC3339), WORKER_TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("error updating worker heartbeat: %w", err)
	}
	return nil
}

func (q *Queue) Add(ctx context.Context, jobs ...*Job) (int64, error) {
	if len(jobs) == 0 {
		return 0, nil
	}
	values := make([]interface{}, 0, len(jobs))
	for _, job := range jobs {
		data, err := json.Marshal(job)
		if err != nil {
			return 0, fmt.Errorf("error marshalling job to JSON: %w", err)
		}
		values = append(values, data)
	}
	if err := q.rdb.LPush(ctx, PAILFROG_JOB_QUEUE_TODO, values...).Err(); err != nil {
		return 0, fmt.Errorf("error adding jobs to queue: %w", err)
	}
	return int64(len(jobs)), nil
}

// Next moves the oldest todo job to the worker's in-progress list and
// returns it.
func (q *Queue) Next(ctx context.Context) (*Job, error) {
	if err := q.Heartbeat(ctx); err != nil {
		return nil, err
	}
	inProgress := InProgressKey(q.worker)
	jobJson, err := q.rdb.RPopLPush(ctx, PAILFROG_JOB_QUEUE_TODO, inProgress).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("error getting job from todo queue: %w", err)
	}
	job := &Job{raw: jobJson}
	if err := json.Unmarshal([]byte(jobJson), job); err != nil {
		// leave nothing unparseable in the in-progress list
		q.rdb.LRem(ctx, inProgress, 1, jobJson)
		return nil, fmt.Errorf("error unmarshalling job %q: %w", jobJson, err)
	}
	return job, nil
}

// Done removes job from the in-progress list and records it as finished.
func (q *Queue) Done(ctx context.Context, job *Job, status string) error {
	count, err := q.rdb.LRem(ctx, InProgressKey(q.worker), 1, job.raw).Result()
	if err != nil {
		return fmt.Errorf("error deleting job from in-progress queue: %w", err)
	}
	if count != 1 {
		log.WithFields(log.Fields{"state": "queue", "job-id": job.JobId}).Warn("job was not in the in-progress queue")
	}
	job.Status = status
	job.JobDoneTime = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("error marshalling job to JSON: %w", err)
	}
	if err := q.rdb.LPush(ctx, PAILFROG_JOB_QUEUE_DONE, data).Err(); err != nil {
		return fmt.Errorf("error adding job to done queue: %w", err)
	}
	return nil
}

// Requeue moves the jobs of this worker and of every worker whose heartbeat
// expired back to the todo list. Jobs held by live workers stay where they
// are.
func (q *Queue) Requeue(ctx context.Context) (int, error) {
	workers, err := q.rdb.SMembers(ctx, PAILFROG_WORKERS).Result()
	if err != nil {
		return 0, fmt.Errorf("error listing workers: %w", err)
	}
	moved := 0
	for _, worker := range workers {
		if worker != q.worker {
			alive, err := q.rdb.Exists(ctx, AliveKey(worker)).Result()
			if err != nil {
				return moved, fmt.Errorf("error reading heartbeat of %s: %w", worker, err)
			}
			if alive > 0 {
				continue
			}
		}
		n, err := q.requeueWorker(ctx, worker)
		moved += n
		if err != nil {
			return moved, err
		}
		if n > 0 {
			log.WithFields(log.Fields{"state": "queue", "worker": worker}).Infof("moved %d in-progress jobs back to todo", n)
		}
		if worker != q.worker {
			if err := q.rdb.SRem(ctx, PAILFROG_WORKERS, worker).Err(); err != nil {
				return moved, fmt.Errorf("error removing worker %s: %w", worker, err)
			}
		}
	}
	return moved, nil
}

func (q *Queue) requeueWorker(ctx context.Context, worker string) (int, error) {
	moved := 0
	for {
		err := q.rdb.RPopLPush(ctx, InProgressKey(worker), PAILFROG_JOB_QUEUE_TODO).Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("error requeueing job of %s: %w", worker, err)
		}
		moved++
	}
}

type Lengths struct {
	Todo       int64
	InProgress int64
	Done       int64
}

// Len counts the jobs in every list. InProgress sums the lists of all
// registered workers.
func (q *Queue) Len(ctx context.Context) (Lengths, error) {
	var lengths Lengths
	workers, err := q.rdb.SMembers(ctx, PAILFROG_WORKERS).Result()
	if err != nil {
		return lengths, fmt.Errorf("error listing workers: %w", err)
	}
	pipe := q.rdb.Pipeline()
	todo := pipe.LLen(ctx, PAILFROG_JOB_QUEUE_TODO)
	done := pipe.LLen(ctx, PAILFROG_JOB_QUEUE_DONE)
	inProgress := make([]*redis.IntCmd, 0, len(workers))
	for _, worker := range workers {
		inProgress = append(inProgress, pipe.LLen(ctx, InProgressKey(worker)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return lengths, fmt.Errorf("error reading queue lengths: %w", err)
	}
	lengths.Todo = todo.Val()
	lengths.Done = done.Val()
	for _, cmd := range inProgress {
		lengths.InProgress += cmd.Val()
	}
	return lengths, nil
}

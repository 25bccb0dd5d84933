package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Job status constants
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// VerifyRequest represents an incoming verification request. Empty fields
// fall back to the service's environment configuration.
type VerifyRequest struct {
	BaseURL         string `json:"base_url,omitempty"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password,omitempty"`
	NewPassword     string `json:"new_password,omitempty"`
	CheckNavigation bool   `json:"check_navigation,omitempty"`
}

// Job is one verification run in the queue.
type Job struct {
	ID          string        `json:"id"`
	Request     VerifyRequest `json:"request"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Outcome     string        `json:"outcome,omitempty"`
	Rotated     bool          `json:"rotated,omitempty"`
	Error       string        `json:"error,omitempty"`
	Artifacts   []string      `json:"artifacts,omitempty"`
}

// JobStore persists verification jobs.
type JobStore interface {
	Create(req VerifyRequest) (*Job, error)
	Get(id string) (*Job, bool, error)
	Update(job *Job) error
}

// MemoryStore keeps jobs in memory; the default when no Redis is
// configured.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Create(req VerifyRequest) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		Request:   req,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}
	s.jobs[job.ID] = job
	return job, nil
}

func (s *MemoryStore) Get(id string) (*Job, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok, nil
}

func (s *MemoryStore) Update(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) CleanupOld(maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range s.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}

// RedisStore persists jobs as JSON values with a TTL so that results
// survive service restarts.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

const redisJobKeyPrefix = "portalverify:job:"

func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

// NewRedisStoreFromClient is used by tests to inject a miniredis-backed
// client.
func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Create(req VerifyRequest) (*Job, error) {
	job := &Job{
		ID:        uuid.New().String(),
		Request:   req,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.Update(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *RedisStore) Get(id string) (*Job, bool, error) {
	ctx := context.Background()
	raw, err := s.rdb.Get(ctx, redisJobKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, false, fmt.Errorf("corrupt job %s: %w", id, err)
	}
	return &job, true, nil
}

func (s *RedisStore) Update(job *Job) error {
	ctx := context.Background()
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisJobKeyPrefix+job.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func markRunning(store JobStore, job *Job) {
	now := time.Now()
	job.Status = JobStatusRunning
	job.StartedAt = &now
	if err := store.Update(job); err != nil {
		fmt.Printf("ERROR: failed to persist job %s: %v\n", job.ID, err)
	}
}

func markfinished(store JobStore, job *Job, failed bool) {
	now := time.Now()
	job.CompletedAt = &now
	if failed {
		job.Status = JobStatusFailed
	} else {
		job.Status = JobStatusCompleted
	}
	if err := store.Update(job); err != nil {
		fmt.Printf("ERROR: failed to persist job %s: %v\n", job.ID, err)
	}
}

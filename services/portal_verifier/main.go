package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"portalverify/config"
	"portalverify/events"
	"portalverify/portal"
)

const (
	jobQueueSize  = 100
	jobRetention  = 24 * time.Hour
	cleanupPeriod = 1 * time.Hour
)

type server struct {
	cfg   *config.Config
	store JobStore
	bus   *events.Bus
	queue chan string
}

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	srv := &server{
		cfg:   cfg,
		queue: make(chan string, jobQueueSize),
	}

	if cfg.RedisAddr != "" {
		log.Printf("💾 Using Redis job store at %s", cfg.RedisAddr)
		srv.store = NewRedisStore(cfg.RedisAddr, jobRetention)
	} else {
		log.Printf("💾 Using in-memory job store")
		memStore := NewMemoryStore()
		srv.store = memStore
		go func() {
			ticker := time.NewTicker(cleanupPeriod)
			defer ticker.Stop()
			for range ticker.C {
				memStore.CleanupOld(jobRetention)
			}
		}()
	}

	if cfg.NATSURL != "" {
		bus, err := events.NewBus(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			log.Printf("⚠️ NATS unavailable, results will not be published: %v", err)
		} else {
			log.Printf("📡 Publishing results to %s", cfg.NATSSubject)
			srv.bus = bus
			defer bus.Close()
		}
	}

	// One worker: the browser is a singleton resource, concurrent runs
	// would fight over it.
	go srv.worker()

	r := mux.NewRouter()
	r.HandleFunc("/verify/start", srv.handleStart).Methods("POST")
	r.HandleFunc("/verify/job/{id}", srv.handleJob).Methods("GET")
	r.HandleFunc("/health", srv.handleHealth).Methods("GET")

	addr := ":" + cfg.Port
	log.Printf("🚀 Portal verifier service listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if r.Body != nil {
		// An empty body means "use the environment defaults".
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	job, err := s.store.Create(req)
	if err != nil {
		http.Error(w, "failed to create job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	select {
	case s.queue <- job.ID:
	default:
		http.Error(w, "job queue is full, try again later", http.StatusServiceUnavailable)
		return
	}

	log.Printf("📥 Queued verification job %s", job.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(job)
}

func (s *server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok, err := s.store.Get(id)
	if err != nil {
		http.Error(w, "failed to load job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (s *server) worker() {
	for id := range s.queue {
		job, ok, err := s.store.Get(id)
		if err != nil || !ok {
			log.Printf("⚠️ Dropping queued job %s: err=%v found=%v", id, err, ok)
			continue
		}
		s.process(job)
	}
}

func (s *server) process(job *Job) {
	log.Printf("▶️  Running verification job %s", job.ID)
	markRunning(s.store, job)
	started := time.Now()

	result := runVerification(s.cfg, job, &portal.SimpleLogger{})

	job.Outcome = string(result.Outcome.State)
	job.Rotated = result.Outcome.Rotated
	job.Artifacts = result.Artifacts
	if result.Err != nil {
		job.Error = result.Err.Error()
		log.Printf("❌ Job %s failed: %v", job.ID, result.Err)
	} else {
		log.Printf("✅ Job %s completed: %s", job.ID, job.Outcome)
	}
	markfinished(s.store, job, result.Err != nil)

	s.publish(job, started)
}

func (s *server) publish(job *Job, started time.Time) {
	if s.bus == nil {
		return
	}
	evt := events.ResultEvent{
		RunID:      job.ID,
		Outcome:    job.Outcome,
		Rotated:    job.Rotated,
		Error:      job.Error,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Artifacts:  job.Artifacts,
	}
	if evt.Outcome == "" {
		evt.Outcome = job.Status
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.bus.Publish(ctx, evt); err != nil {
		log.Printf("⚠️ Failed to publish result for job %s: %v", job.ID, err)
	}
}

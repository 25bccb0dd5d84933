package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalverify/config"
)

func newTestServer() (*server, *mux.Router) {
	srv := &server{
		cfg:   &config.Config{BaseURL: "http://portal.example"},
		store: NewMemoryStore(),
		queue: make(chan string, 4),
	}
	r := mux.NewRouter()
	r.HandleFunc("/verify/start", srv.handleStart).Methods("POST")
	r.HandleFunc("/verify/job/{id}", srv.handleJob).Methods("GET")
	r.HandleFunc("/health", srv.handleHealth).Methods("GET")
	return srv, r
}

func TestStartQueuesJob(t *testing.T) {
	srv, r := newTestServer()

	body := strings.NewReader(`{"check_navigation": true}`)
	req := httptest.NewRequest(http.MethodPost, "/verify/start", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var job Job
	require.NoError(t, json.NewDecoder(w.Body).Decode(&job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.True(t, job.Request.CheckNavigation)

	select {
	case id := <-srv.queue:
		assert.Equal(t, job.ID, id)
	default:
		t.Fatal("job was not queued")
	}
}

func TestStartWithEmptyBodyUsesDefaults(t *testing.T) {
	_, r := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/verify/start", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestStartRejectsWhenQueueFull(t *testing.T) {
	srv, r := newTestServer()
	for i := 0; i < cap(srv.queue); i++ {
		srv.queue <- "filler"
	}

	req := httptest.NewRequest(http.MethodPost, "/verify/start", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetJob(t *testing.T) {
	srv, r := newTestServer()
	job, err := srv.store.Create(VerifyRequest{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/verify/job/"+job.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got Job
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, job.ID, got.ID)
}

func TestGetJobNotFound(t *testing.T) {
	_, r := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/verify/job/unknown", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	_, r := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/jobs"
	"github.com/tomtom215/affinity/internal/models"
	"github.com/tomtom215/affinity/internal/precompute"
	"github.com/tomtom215/affinity/internal/recommend"
)

type fakeRecommender struct {
	resp    *recommend.Response
	err     error
	lastReq recommend.Request

	refreshed  []int64
	refreshTag []string
	refreshN   int64

	feedback    []*models.Feedback
	feedbackErr error
}

func (f *fakeRecommender) Recommend(_ context.Context, req recommend.Request) (*recommend.Response, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeRecommender) Refresh(_ context.Context, userID int64, _ models.Strategy, tags []string) (int64, error) {
	f.refreshed = append(f.refreshed, userID)
	f.refreshTag = tags
	return f.refreshN, nil
}

func (f *fakeRecommender) RecordFeedback(_ context.Context, fb *models.Feedback) error {
	if f.feedbackErr != nil {
		return f.feedbackErr
	}
	f.feedback = append(f.feedback, fb)
	return nil
}

type fakeJobs struct {
	mu        sync.Mutex
	triggered []string
}

func (f *fakeJobs) Trigger(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggered = append(f.triggered, name)
	return jobs.ResultSuccess, nil
}

func (f *fakeJobs) Names() []string {
	return []string{jobs.NameFullPrecompute, jobs.NameIncrementalPrecompute, jobs.NameCacheSync}
}

type recompute struct {
	kind models.ScoreKind
	id   int64
}

type fakePrecompute struct {
	calls []recompute
	err   error
}

func (f *fakePrecompute) Statuses() []precompute.Status {
	return []precompute.Status{{Kind: string(models.KindSimilarity), State: precompute.StateIdle}}
}

func (f *fakePrecompute) RecomputeUser(_ context.Context, kind models.ScoreKind, userID int64) error {
	f.calls = append(f.calls, recompute{kind, userID})
	return f.err
}

type fakeResults struct {
	cleared int
}

func (f *fakeResults) ClearResults(context.Context) (int64, error) {
	f.cleared++
	return 4, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakePublisher struct {
	err   error
	users []int64
	tags  [][]string
}

func (f *fakePublisher) PublishTagsUpdated(_ context.Context, userID int64, tags []string) error {
	f.users = append(f.users, userID)
	f.tags = append(f.tags, tags)
	return f.err
}

type fakeLimiter struct {
	allow bool
	ips   []string
}

func (f *fakeLimiter) AllowIP(_ context.Context, ip string) bool {
	f.ips = append(f.ips, ip)
	return f.allow
}

type fixture struct {
	rec     *fakeRecommender
	jobs    *fakeJobs
	pre     *fakePrecompute
	results *fakeResults
	limiter *fakeLimiter
	pub     *fakePublisher
	checks  map[string]Pinger
	handler http.Handler

	// events is what the handler gets; set it to nil to disable the bus.
	events TagsPublisher
}

func newFixture(t *testing.T, mutate func(f *fixture, cfg *Config)) *fixture {
	t.Helper()

	f := &fixture{
		rec:     &fakeRecommender{resp: &recommend.Response{Source: recommend.SourceComputed}},
		jobs:    &fakeJobs{},
		pre:     &fakePrecompute{},
		results: &fakeResults{},
		limiter: &fakeLimiter{allow: true},
		pub:     &fakePublisher{},
		checks:  map[string]Pinger{"redis": fakePinger{}},
	}
	f.events = f.pub
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(f, &cfg)
	}

	h := NewHandler(context.Background(), Deps{
		Recommender: f.rec,
		Jobs:        f.jobs,
		Precompute:  f.pre,
		Results:     f.results,
		Events:      f.events,
		Checks:      f.checks,
	}, zerolog.Nop())
	h.background = func(fn func()) { fn() }

	f.handler = NewRouter(h, cfg, f.limiter)
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// decode parses the envelope and returns it with Data left as raw JSON.
func decode(t *testing.T, rec *httptest.ResponseRecorder) (APIResponse, json.RawMessage) {
	t.Helper()
	var env struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env.APIResponse, env.Data
}

func serve(f *fixture, req *http.Request) *httptest.ResponseRecorder {
	if req.RemoteAddr == "" {
		req.RemoteAddr = "192.0.2.1:1234"
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

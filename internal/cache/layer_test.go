// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/kvstore"
	"github.com/tomtom215/affinity/internal/models"
)

type fakeSource struct {
	mu        sync.Mutex
	users     []*models.User
	teams     []*models.Team
	listCalls atomic.Int32
	getCalls  atomic.Int32
	err       error

	// When set, ListActiveUsers signals started and waits for release.
	started chan struct{}
	release chan struct{}
}

func (f *fakeSource) ListActiveUsers(ctx context.Context) ([]*models.User, error) {
	f.listCalls.Add(1)
	if f.release != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		if u.Active() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeSource) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	f.getCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (f *fakeSource) ListTeams(_ context.Context) ([]*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teams, f.err
}

func testUsers() []*models.User {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*models.User{
		{ID: 3, Username: "carol", Tags: `["Go","Vue"]`, CreatedAt: created},
		{ID: 1, Username: "alice", Tags: `["Java","React"]`, CreatedAt: created},
		{ID: 2, Username: "bob", Tags: `["Java","Go"]`, CreatedAt: created},
		{ID: 4, Username: "dave", Tags: `[]`, CreatedAt: created},
		{ID: 5, Username: "eve", Tags: `["Python"]`, Status: 1, CreatedAt: created},
	}
}

func newTestLayer(t *testing.T, src *fakeSource) (*Layer, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	kv := kvstore.New(client, kvstore.Config{OpTimeout: time.Second}, zerolog.Nop())
	return New(kv, src, Config{}, zerolog.Nop()), mr
}

func userIDs(users []*models.User) []int64 {
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLayer_AllUsersSyncsEmptySnapshot(t *testing.T) {
	src := &fakeSource{users: testUsers()}
	l, mr := newTestLayer(t, src)
	ctx := context.Background()

	users, err := l.AllUsers(ctx)
	if err != nil {
		t.Fatalf("AllUsers() error = %v", err)
	}
	if got, want := userIDs(users), []int64{1, 2, 3, 4}; !equalIDs(got, want) {
		t.Errorf("AllUsers() ids = %v, want %v", got, want)
	}
	if !mr.Exists("microde:users:all") {
		t.Fatal("snapshot was not written")
	}
	if ttl := mr.TTL("microde:users:all"); ttl != 10*time.Minute {
		t.Errorf("snapshot TTL = %v, want 10m", ttl)
	}

	// Second read comes from the snapshot.
	users, err = l.AllUsers(ctx)
	if err != nil {
		t.Fatalf("AllUsers() error = %v", err)
	}
	if got := src.listCalls.Load(); got != 1 {
		t.Errorf("ListActiveUsers calls = %d, want 1", got)
	}
	if got, want := userIDs(users), []int64{1, 2, 3, 4}; !equalIDs(got, want) {
		t.Errorf("AllUsers() ids = %v, want %v", got, want)
	}
	if users[0].Username != "alice" || len(users[0].TagList()) != 2 {
		t.Errorf("decoded user = %+v", users[0])
	}
}

func TestLayer_SyncSurvivesCallerCancel(t *testing.T) {
	src := &fakeSource{
		users:   testUsers(),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	l, mr := newTestLayer(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := l.SyncUsers(ctx)
		errCh <- err
	}()

	<-src.started
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("SyncUsers() error = %v, want context.Canceled", err)
	}

	close(src.release)
	deadline := time.Now().Add(2 * time.Second)
	for !mr.Exists("microde:users:all") {
		if time.Now().After(deadline) {
			t.Fatal("shared sync did not finish after its first caller went away")
		}
		time.Sleep(10 * time.Millisecond)
	}

	users, err := l.AllUsers(context.Background())
	if err != nil {
		t.Fatalf("AllUsers() error = %v", err)
	}
	if got := userIDs(users); !equalIDs(got, []int64{1, 2, 3, 4}) {
		t.Errorf("AllUsers() = %v, want [1 2 3 4]", got)
	}
	if n := src.listCalls.Load(); n != 1 {
		t.Errorf("ListActiveUsers calls = %d, want 1", n)
	}
}

func TestLayer_AllUsersSourceFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	l, _ := newTestLayer(t, src)

	if _, err := l.AllUsers(context.Background()); err == nil {
		t.Error("AllUsers() with empty snapshot and failing source: want error")
	}
}

func TestLayer_StaleSnapshotResyncsInBackground(t *testing.T) {
	src := &fakeSource{users: testUsers()}
	l, mr := newTestLayer(t, src)
	ctx := context.Background()

	if _, err := l.SyncUsers(ctx); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(6 * time.Minute)

	src.mu.Lock()
	src.users = append(src.users, &models.User{ID: 9, Tags: `["Rust"]`})
	src.mu.Unlock()

	if _, err := l.AllUsers(ctx); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if src.listCalls.Load() >= 2 && mr.HGet("microde:users:all", "9") != "" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("stale snapshot was not resynced")
}

func TestLayer_ActiveUsersFiltersInactive(t *testing.T) {
	src := &fakeSource{users: testUsers()}
	l, mr := newTestLayer(t, src)
	ctx := context.Background()

	// Write an inactive user straight into the snapshot.
	mr.HSet("microde:users:all", "7", `{"id":7,"status":1}`, "8", `{"id":8,"status":0}`)
	mr.SetTTL("microde:users:all", 10*time.Minute)

	users, err := l.ActiveUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := userIDs(users); !equalIDs(got, []int64{8}) {
		t.Errorf("ActiveUsers() ids = %v, want [8]", got)
	}
}

func TestLayer_User(t *testing.T) {
	src := &fakeSource{users: testUsers()}
	l, _ := newTestLayer(t, src)
	ctx := context.Background()

	u, err := l.User(ctx, 2)
	if err != nil || u.Username != "bob" {
		t.Fatalf("User(2) = %+v, %v", u, err)
	}
	if got := src.getCalls.Load(); got != 1 {
		t.Errorf("GetUserByID calls = %d, want 1 before snapshot", got)
	}

	// Memoized.
	if _, err := l.User(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if got := src.getCalls.Load(); got != 1 {
		t.Errorf("GetUserByID calls = %d, want 1 after memo hit", got)
	}

	if _, err := l.SyncUsers(ctx); err != nil {
		t.Fatal(err)
	}
	if u, err := l.User(ctx, 3); err != nil || u.Username != "carol" {
		t.Errorf("User(3) = %+v, %v", u, err)
	}
	if got := src.getCalls.Load(); got != 1 {
		t.Errorf("GetUserByID calls = %d, want snapshot hit", got)
	}

	if _, err := l.User(ctx, 404); !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("User(404) error = %v, want ErrUserNotFound", err)
	}
}

func TestLayer_RefreshUser(t *testing.T) {
	src := &fakeSource{users: testUsers()}
	l, mr := newTestLayer(t, src)
	ctx := context.Background()

	if _, err := l.SyncUsers(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := l.UsersWithAnyTag(ctx, []string{"Rust"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.User(ctx, 2); err != nil {
		t.Fatal(err)
	}

	src.mu.Lock()
	src.users[2] = &models.User{ID: 2, Username: "bob", Tags: `["Rust"]`, CreatedAt: src.users[2].CreatedAt}
	src.mu.Unlock()

	u, err := l.RefreshUser(ctx, 2)
	if err != nil {
		t.Fatalf("RefreshUser() error = %v", err)
	}
	if got := u.TagList(); len(got) != 1 || got[0] != "Rust" {
		t.Errorf("RefreshUser() tags = %v, want [Rust]", got)
	}
	if got, _ := l.User(ctx, 2); got.Tags != `["Rust"]` {
		t.Errorf("User(2) tags = %s after refresh", got.Tags)
	}
	if mr.Exists("microde:tags:users:Rust") {
		t.Error("tag index survived a refresh")
	}
	ids, err := l.UsersWithAnyTag(ctx, []string{"Rust"})
	if err != nil || !equalIDs(ids, []int64{2}) {
		t.Errorf("UsersWithAnyTag(Rust) = %v, %v, want [2]", ids, err)
	}

	// Deactivated users leave the snapshot.
	src.mu.Lock()
	src.users[1].Status = 1
	src.mu.Unlock()
	if _, err := l.RefreshUser(ctx, 1); !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("RefreshUser(inactive) error = %v, want ErrUserNotFound", err)
	}
	if mr.HGet("microde:users:all", "1") != "" {
		t.Error("inactive user still in snapshot")
	}
}

func TestLayer_RefreshUserWithoutSnapshot(t *testing.T) {
	src := &fakeSource{users: testUsers()}
	l, mr := newTestLayer(t, src)

	if _, err := l.RefreshUser(context.Background(), 3); err != nil {
		t.Fatalf("RefreshUser() error = %v", err)
	}
	if mr.Exists("microde:users:all") {
		t.Error("RefreshUser() created a partial snapshot")
	}
}

func TestLayer_Teams(t *testing.T) {
	src := &fakeSource{teams: []*models.Team{{ID: 2, Name: "b"}, {ID: 1, Name: "a"}}}
	l, _ := newTestLayer(t, src)
	ctx := context.Background()

	teams, err := l.AllTeams(ctx)
	if err != nil || len(teams) != 2 || teams[0].ID != 1 {
		t.Fatalf("AllTeams() = %v, %v", teams, err)
	}

	team, err := l.Team(ctx, 2)
	if err != nil || team.Name != "b" {
		t.Errorf("Team(2) = %+v, %v", team, err)
	}
	if _, err := l.Team(ctx, 3); !errors.Is(err, kvstore.ErrNotFound) {
		t.Errorf("Team(3) error = %v, want ErrNotFound", err)
	}
}

func TestLayer_TopKTieAtCut(t *testing.T) {
	l, _ := newTestLayer(t, &fakeSource{})
	ctx := context.Background()

	odd := 0.1 + 0.2
	entries := []models.ScoreEntry{
		{TargetID: 7, Score: 0.9},
		{TargetID: 4, Score: 0.5},
		{TargetID: 9, Score: 0.5},
		{TargetID: 12, Score: 0.5},
		{TargetID: 30, Score: odd},
		{TargetID: 21, Score: odd},
		{TargetID: 3, Score: 0.1},
	}
	if err := l.WriteTopK(ctx, models.KindSimilarity, 1, entries); err != nil {
		t.Fatalf("WriteTopK() error = %v", err)
	}

	tests := []struct {
		n    int
		want []int64
	}{
		{1, []int64{7}},
		{2, []int64{7, 4}},
		{3, []int64{7, 4, 9}},
		{4, []int64{7, 4, 9, 12}},
		{5, []int64{7, 4, 9, 12, 21}},
		{7, []int64{7, 4, 9, 12, 21, 30, 3}},
		{20, []int64{7, 4, 9, 12, 21, 30, 3}},
	}
	for _, tt := range tests {
		got, err := l.TopK(ctx, models.KindSimilarity, 1, tt.n)
		if err != nil {
			t.Fatalf("TopK(n=%d) error = %v", tt.n, err)
		}
		ids := make([]int64, len(got))
		for i, e := range got {
			ids[i] = e.TargetID
		}
		if !slices.Equal(ids, tt.want) {
			t.Errorf("TopK(n=%d) = %v, want %v", tt.n, ids, tt.want)
		}
	}
}

func TestLayer_TopK(t *testing.T) {
	l, mr := newTestLayer(t, &fakeSource{})
	ctx := context.Background()

	entries := []models.ScoreEntry{
		{TargetID: 9, Score: 0.5},
		{TargetID: 4, Score: 0.5},
		{TargetID: 7, Score: 0.9},
		{TargetID: 12, Score: 0.5},
	}
	if err := l.WriteTopK(ctx, models.KindSimilarity, 1, entries); err != nil {
		t.Fatalf("WriteTopK() error = %v", err)
	}
	if ttl := mr.TTL("microde:similarity:1"); ttl != 24*time.Hour {
		t.Errorf("TTL = %v, want 24h", ttl)
	}

	got, err := l.TopK(ctx, models.KindSimilarity, 1, 10)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	want := []int64{7, 4, 9, 12}
	for i, e := range got {
		if e.TargetID != want[i] {
			t.Errorf("TopK()[%d] = %d, want %d", i, e.TargetID, want[i])
		}
		if e.SubjectID != 1 || e.Kind != models.KindSimilarity {
			t.Errorf("TopK()[%d] = %+v, missing subject or kind", i, e)
		}
	}

	ok, err := l.HasTopK(ctx, models.KindSimilarity, 1)
	if err != nil || !ok {
		t.Errorf("HasTopK(similarity) = %v, %v", ok, err)
	}
	ok, _ = l.HasTopK(ctx, models.KindComplement, 1)
	if ok {
		t.Error("HasTopK(complement) = true, want false")
	}

	missing, err := l.TopK(ctx, models.KindComplement, 1, 10)
	if err != nil || len(missing) != 0 {
		t.Errorf("TopK(missing) = %v, %v; want empty", missing, err)
	}

	if err := l.DeleteTopK(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("microde:similarity:1") {
		t.Error("DeleteTopK left the similarity list")
	}
}

func TestLayer_ActivityScore(t *testing.T) {
	l, _ := newTestLayer(t, &fakeSource{})
	ctx := context.Background()

	if _, ok, err := l.ActivityScore(ctx, 1); ok || err != nil {
		t.Errorf("ActivityScore(miss) = ok %v, err %v", ok, err)
	}
	if err := l.SetActivityScore(ctx, 1, 0.65); err != nil {
		t.Fatal(err)
	}
	score, ok, err := l.ActivityScore(ctx, 1)
	if err != nil || !ok || score != 0.65 {
		t.Errorf("ActivityScore() = %v, %v, %v; want 0.65", score, ok, err)
	}
	if err := l.DeleteActivityScore(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := l.ActivityScore(ctx, 1); ok {
		t.Error("ActivityScore() after delete: want miss")
	}
}

func TestLayer_UsersWithAnyTag(t *testing.T) {
	src := &fakeSource{users: testUsers()}
	l, mr := newTestLayer(t, src)
	ctx := context.Background()

	ids, err := l.UsersWithAnyTag(ctx, []string{"Vue", "Java", " "})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids, []int64{1, 2, 3}) {
		t.Errorf("UsersWithAnyTag() = %v, want [1 2 3]", ids)
	}
	if !mr.Exists("microde:tags:users:Java,Vue") {
		t.Error("tag index was not memoized under the sorted key")
	}
	if ttl := mr.TTL("microde:tags:users:Java,Vue"); ttl != time.Hour {
		t.Errorf("tag index TTL = %v, want 1h", ttl)
	}

	// Served from the memo even if the snapshot changes.
	mr.Del("microde:users:all")
	src.mu.Lock()
	src.users = nil
	src.mu.Unlock()
	ids, err = l.UsersWithAnyTag(ctx, []string{"Java", "Vue"})
	if err != nil || !equalIDs(ids, []int64{1, 2, 3}) {
		t.Errorf("UsersWithAnyTag() memo = %v, %v", ids, err)
	}

	ids, err = l.UsersWithAnyTag(ctx, nil)
	if err != nil || len(ids) != 0 {
		t.Errorf("UsersWithAnyTag(nil) = %v, %v", ids, err)
	}
}

func TestLayer_Results(t *testing.T) {
	l, mr := newTestLayer(t, &fakeSource{})
	ctx := context.Background()

	key := ResultKey{UserID: 1, Strategy: models.StrategyAll, Tags: []string{"Vue", "Go"}, PageNum: 1, PageSize: 10}
	if got := key.String(); got != "recommend:userId:1:strategy:all:tags:Go,Vue:page:1:size:10" {
		t.Errorf("ResultKey.String() = %q", got)
	}

	if _, ok := l.GetResults(ctx, key); ok {
		t.Error("GetResults() before put: want miss")
	}

	page := &ResultPage{
		Records:  []models.RecommendationResult{{UserID: 2, Score: 0.7, Reasons: []string{"x"}}},
		Total:    1,
		PageNum:  1,
		PageSize: 10,
		Pages:    1,
	}
	if err := l.PutResults(ctx, key, page); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("microde:" + key.String()); ttl != 5*time.Minute {
		t.Errorf("result TTL = %v, want 5m", ttl)
	}
	got, ok := l.GetResults(ctx, key)
	if !ok || got.Total != 1 || got.Records[0].UserID != 2 {
		t.Errorf("GetResults() = %+v, %v", got, ok)
	}

	other := ResultKey{UserID: 1, Strategy: models.StrategyComplement, PageNum: 1, PageSize: 10}
	guest := ResultKey{Strategy: models.StrategyAll, PageNum: 1, PageSize: 10}
	_ = l.PutResults(ctx, other, page)
	_ = l.PutResults(ctx, guest, page)

	n, err := l.InvalidateResults(ctx, 1, models.StrategyAll, []string{"Go", "Vue"})
	if err != nil || n != 1 {
		t.Errorf("InvalidateResults(all, tags) = %d, %v; want 1", n, err)
	}
	if _, ok := l.GetResults(ctx, other); !ok {
		t.Error("InvalidateResults removed another strategy")
	}

	n, err = l.InvalidateResults(ctx, 1, "", nil)
	if err != nil || n != 1 {
		t.Errorf("InvalidateResults(any) = %d, %v; want 1", n, err)
	}
	if _, ok := l.GetResults(ctx, guest); !ok {
		t.Error("InvalidateResults removed the guest page")
	}

	_ = l.PutResults(ctx, key, page)
	if err := l.SetActivityScore(ctx, 1, 0.4); err != nil {
		t.Fatal(err)
	}
	n, err = l.ClearResults(ctx)
	if err != nil || n != 2 {
		t.Errorf("ClearResults() = %d, %v; want 2", n, err)
	}
	if _, ok, _ := l.ActivityScore(ctx, 1); !ok {
		t.Error("ClearResults removed an activity score")
	}
}

func TestLayer_Cleanup(t *testing.T) {
	l, mr := newTestLayer(t, &fakeSource{})
	ctx := context.Background()

	for _, k := range []string{
		"microde:recommend:userId:1:strategy:all:page:1:size:10",
		"microde:similarity:1",
		"microde:complement:1",
		"microde:user:search:abc",
		"microde:user:current:1",
		"microde:activity:1",
		"microde:lock:full:precompute",
	} {
		_ = mr.Set(k, "x")
	}

	n, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if n != 5 {
		t.Errorf("Cleanup() = %d, want 5", n)
	}
	if !mr.Exists("microde:activity:1") || !mr.Exists("microde:lock:full:precompute") {
		t.Error("Cleanup removed keys it does not own")
	}
}

func TestEscapeGlob(t *testing.T) {
	tests := map[string]string{
		"plain":  "plain",
		"C++":    "C++",
		"a*b":    `a\*b`,
		"[x]?":   `\[x\]\?`,
		`back\s`: `back\\s`,
	}
	for in, want := range tests {
		if got := escapeGlob(in); got != want {
			t.Errorf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}

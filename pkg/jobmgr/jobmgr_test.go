package jobmgr

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) report(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) has(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, s)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartAsync(t *testing.T) {
	rec := &recorder{}
	m := NewManager(rec.report)

	release := make(chan struct{})
	if err := m.StartAsync("a", func(ctx context.Context) error {
		<-release
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := m.StartAsync("a", func(ctx context.Context) error { return nil }); err == nil {
		t.Error("duplicate job started")
	}
	if got := m.Status(); got != "Running jobs: a" {
		t.Errorf("Status() = %q", got)
	}

	close(release)
	waitFor(t, func() bool { return len(m.List("")) == 0 })
	if !rec.has("running:a") || !rec.has("done:a") {
		t.Errorf("events = %v", rec.events)
	}

	if err := m.StartAsync("b", func(ctx context.Context) error { return errors.New("boom") }); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.has("error:b:boom") })
	if got := m.Status(); got != "No jobs are running." {
		t.Errorf("Status() = %q", got)
	}
}

func TestAfter(t *testing.T) {
	rec := &recorder{}
	m := NewManager(rec.report)

	fired := make(chan struct{})
	if err := m.After("soon", 5*time.Millisecond, func(ctx context.Context) error {
		close(fired)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	job, ok := m.Get("soon")
	if !ok || job.Due.IsZero() {
		t.Errorf("Get() = %+v, %v", job, ok)
	}
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}

	if err := m.After("later", time.Hour, func(ctx context.Context) error {
		t.Error("stopped job fired")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop("later"); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop("later"); err == nil {
		t.Error("stopping a stopped job succeeded")
	}
	waitFor(t, func() bool { return rec.has("stopped:later") })
}

func TestListAndStopAll(t *testing.T) {
	m := NewManager(nil)
	for _, name := range []string{"remind:2:x", "remind:1:y", "remind:1:x", "other"} {
		if err := m.After(name, time.Hour, func(ctx context.Context) error { return nil }); err != nil {
			t.Fatal(err)
		}
	}

	got := m.List("remind:1:")
	if !slices.Equal(got, []string{"remind:1:x", "remind:1:y"}) {
		t.Errorf("List() = %v", got)
	}

	m.StopAll()
	if got := m.List(""); len(got) != 0 {
		t.Errorf("jobs left after StopAll: %v", got)
	}
	if _, ok := m.Get("other"); ok {
		t.Error("Get() found a stopped job")
	}
}

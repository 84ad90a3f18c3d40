package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-cast-agent/internal/cache"
	"github.com/tbourn/go-cast-agent/internal/domain"
)

type fakePublisher struct {
	mu     sync.Mutex
	texts  []string
	fail   error
	delay  time.Duration
	panics bool
}

func (p *fakePublisher) PublishReply(_ context.Context, text, parent string) (string, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.panics {
		panic("publisher blew up")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return "", p.fail
	}
	p.texts = append(p.texts, text)
	return fmt.Sprintf("0xreply%d", len(p.texts)), nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.texts)
}

type fakeClaimer struct {
	mu       sync.Mutex
	claims   map[string]string
	released int
}

func newFakeClaimer() *fakeClaimer { return &fakeClaimer{claims: map[string]string{}} }

func (f *fakeClaimer) ClaimResponse(_ context.Context, hash, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.claims[hash]; ok {
		return ErrAlreadyClaimed
	}
	f.claims[hash] = path
	return nil
}

func (f *fakeClaimer) CompleteClaim(context.Context, string, string) error { return nil }

func (f *fakeClaimer) ReleaseClaim(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claims, hash)
	f.released++
	return nil
}

type fakeMemory struct {
	mu   sync.Mutex
	mems []domain.ReplyMemory
}

func (m *fakeMemory) RecordReplyMemory(_ context.Context, r *domain.ReplyMemory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mems = append(m.mems, *r)
	return nil
}

func newCoordinator(t *testing.T, pub *fakePublisher, stage Stage) (*Coordinator, *fakeClaimer, *fakeMemory) {
	t.Helper()
	claims, err := cache.NewClaimCache(cache.DefaultClaimTTL)
	if err != nil {
		t.Fatalf("NewClaimCache: %v", err)
	}
	durable := newFakeClaimer()
	mem := &fakeMemory{}
	return &Coordinator{Publisher: pub, Claims: claims, Durable: durable, Memory: mem, Stage: stage}, durable, mem
}

func request(action string) Request {
	return Request{
		Interaction: &domain.Interaction{ID: "i1", RoomID: "0xroot"},
		Cast:        &domain.Cast{Hash: "0xabc"},
		Response:    domain.GeneratedResponse{Text: "candidate", Action: action},
	}
}

func TestResolve_ActionClaims_DefaultSkipped(t *testing.T) {
	pub := &fakePublisher{}
	reg := NewRegistry()
	reg.Register("wave", func(ctx context.Context, req Request, publish PublishFunc) error {
		_, err := publish(ctx, "👋")
		return err
	})
	c, _, mem := newCoordinator(t, pub, reg)

	res, err := c.Resolve(context.Background(), request("WAVE"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pub.count() != 1 || pub.texts[0] != "👋" {
		t.Fatalf("expected only the action reply, got %v", pub.texts)
	}
	if !res.Published || res.Path != domain.PathAction || res.ReplyHash != "0xreply1" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if len(mem.mems) != 1 || mem.mems[0].Path != domain.PathAction || mem.mems[0].Action != "WAVE" {
		t.Fatalf("unexpected memories: %+v", mem.mems)
	}
	if c.Claims.IsClaimed("0xabc") {
		t.Fatalf("in-memory claim should be cleaned up after resolution")
	}
}

func TestResolve_NoClaim_DefaultPublishedOnce(t *testing.T) {
	pub := &fakePublisher{}
	reg := NewRegistry()
	called := 0
	reg.Register("LOOK", func(context.Context, Request, PublishFunc) error {
		called++
		return nil
	})
	c, _, mem := newCoordinator(t, pub, reg)

	for _, action := range []string{"LOOK", "NONE", "UNKNOWN"} {
		pub.texts = nil
		mem.mems = nil
		c.Durable = newFakeClaimer()
		res, err := c.Resolve(context.Background(), request(action))
		if err != nil {
			t.Fatalf("%s: Resolve: %v", action, err)
		}
		if pub.count() != 1 || pub.texts[0] != "candidate" {
			t.Fatalf("%s: expected exactly one default publish, got %v", action, pub.texts)
		}
		if res.Path != domain.PathDefault || len(mem.mems) != 1 || mem.mems[0].Action != domain.ActionNone {
			t.Fatalf("%s: unexpected resolution %+v mems %+v", action, res, mem.mems)
		}
	}
	if called != 1 {
		t.Fatalf("LOOK handler should run once, ran %d", called)
	}
}

func TestResolve_ActionPublishTwice_SecondRejected(t *testing.T) {
	pub := &fakePublisher{}
	reg := NewRegistry()
	var second error
	reg.Register("SPAM", func(ctx context.Context, req Request, publish PublishFunc) error {
		if _, err := publish(ctx, "one"); err != nil {
			return err
		}
		_, second = publish(ctx, "two")
		return nil
	})
	c, _, _ := newCoordinator(t, pub, reg)

	if _, err := c.Resolve(context.Background(), request("SPAM")); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !errors.Is(second, ErrAlreadyClaimed) || pub.count() != 1 {
		t.Fatalf("second publish should be rejected: err=%v texts=%v", second, pub.texts)
	}
}

func TestResolve_ActionPublishFails_ReleasesAndFallsBack(t *testing.T) {
	pub := &fakePublisher{}
	reg := NewRegistry()
	reg.Register("WAVE", func(ctx context.Context, req Request, publish PublishFunc) error {
		pub.mu.Lock()
		pub.fail = errors.New("503")
		pub.mu.Unlock()
		_, err := publish(ctx, "👋")
		pub.mu.Lock()
		pub.fail = nil
		pub.mu.Unlock()
		return err
	})
	c, durable, mem := newCoordinator(t, pub, reg)

	res, err := c.Resolve(context.Background(), request("WAVE"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if durable.released != 1 {
		t.Fatalf("failed action publish must release the durable claim, released=%d", durable.released)
	}
	if res.Path != domain.PathDefault || pub.count() != 1 || len(mem.mems) != 1 {
		t.Fatalf("default path should answer: res=%+v texts=%v mems=%v", res, pub.texts, mem.mems)
	}
}

func TestResolve_DefaultPublishFails_NoMemory(t *testing.T) {
	pub := &fakePublisher{fail: errors.New("500")}
	c, durable, mem := newCoordinator(t, pub, nil)

	_, err := c.Resolve(context.Background(), request(domain.ActionNone))
	if !errors.Is(err, ErrPublish) {
		t.Fatalf("expected ErrPublish, got %v", err)
	}
	if len(mem.mems) != 0 {
		t.Fatalf("no memory may be recorded for an unsent reply")
	}
	if _, held := durable.claims["0xabc"]; held {
		t.Fatalf("durable claim must be released after publish failure")
	}
}

func TestResolve_PublisherPanics_ReleasesClaims(t *testing.T) {
	pub := &fakePublisher{panics: true}
	reg := NewRegistry()
	reg.Register("REPLY", ReplyNow)
	c, durable, mem := newCoordinator(t, pub, reg)

	for _, action := range []string{domain.ActionNone, "REPLY"} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: panic should propagate to the caller", action)
				}
			}()
			_, _ = c.Resolve(context.Background(), request(action))
		}()
		if _, held := durable.claims["0xabc"]; held {
			t.Fatalf("%s: durable claim must be released after a panicking publish", action)
		}
		if c.Claims.IsClaimed("0xabc") {
			t.Fatalf("%s: in-memory claim must not outlive the panic", action)
		}
	}
	if durable.released != 2 || len(mem.mems) != 0 {
		t.Fatalf("released=%d mems=%v", durable.released, mem.mems)
	}
}

func TestResolve_Suppressed(t *testing.T) {
	pub := &fakePublisher{}
	reg := NewRegistry()
	reg.Register("IGNORE", Ignore)
	c, _, _ := newCoordinator(t, pub, reg)

	res, err := c.Resolve(context.Background(), request("IGNORE"))
	if err != nil || !res.Suppressed || pub.count() != 0 {
		t.Fatalf("expected suppression without publish: res=%+v err=%v texts=%v", res, err, pub.texts)
	}
}

func TestResolve_DurableClaimHeld_SkipsDefault(t *testing.T) {
	pub := &fakePublisher{}
	c, durable, _ := newCoordinator(t, pub, nil)
	durable.claims["0xabc"] = domain.PathAction

	res, err := c.Resolve(context.Background(), request(domain.ActionNone))
	if err != nil || res.Published || pub.count() != 0 {
		t.Fatalf("held durable claim must block publish: res=%+v err=%v", res, err)
	}
}

func TestResolve_ConcurrentSameCast_SinglePublish(t *testing.T) {
	pub := &fakePublisher{delay: 5 * time.Millisecond}
	reg := NewRegistry()
	reg.Register("REPLY", ReplyNow)
	c, _, _ := newCoordinator(t, pub, reg)

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		action := domain.ActionNone
		if i%2 == 0 {
			action = "REPLY"
		}
		g.Go(func() error {
			_, err := c.Resolve(context.Background(), request(action))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("expected exactly one reply across concurrent deliveries, got %d", pub.count())
	}
}

func TestResolve_MissingInputs(t *testing.T) {
	c, _, _ := newCoordinator(t, &fakePublisher{}, nil)
	if _, err := c.Resolve(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error for empty request")
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	reg.Register(" wave ", ReplyNow)
	reg.Register("none", ReplyNow)
	reg.Register("", ReplyNow)
	reg.Register("IGNORE", Ignore)
	reg.Register("NIL", nil)
	got := reg.Names()
	if len(got) != 2 || got[0] != "IGNORE" || got[1] != "WAVE" {
		t.Fatalf("Names = %v", got)
	}
}

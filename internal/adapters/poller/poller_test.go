package poller_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/runtrack/internal/adapters/poller"
	"github.com/okian/runtrack/internal/adapters/provider"
	"github.com/okian/runtrack/internal/domain/model"
	logging "github.com/okian/runtrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	// delay and err are looked up by 1-based call number
	delay map[int]time.Duration
	err   map[int]error
}

func (s *fakeSource) FetchSnapshot(ctx context.Context) (provider.Snapshot, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	d, err := s.delay[n], s.err[n]
	s.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return provider.Snapshot{}, ctx.Err()
		}
	}
	if err != nil {
		return provider.Snapshot{}, err
	}
	return provider.Snapshot{Participants: []model.Participant{{RunnerID: "r"}}, Raw: []byte(`{}`)}, nil
}

type sink struct {
	mu     sync.Mutex
	events []model.Event
}

func (s *sink) Enqueue(_ context.Context, e model.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return true
}

func (s *sink) snapshot() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.events...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func stop(p *poller.Poller) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.Stop(ctx)
}

func TestPoller(t *testing.T) {
	_ = logging.Init()

	Convey("Given a poller with a long interval", t, func() {
		src := &fakeSource{}
		out := &sink{}
		p := poller.New(src, out, poller.WithInterval(time.Hour))

		Convey("When it starts", func() {
			So(p.Start(context.Background()), ShouldBeNil)
			defer stop(p)

			Convey("Then it should fetch immediately with sequence 1", func() {
				So(waitFor(func() bool { return len(out.snapshot()) == 1 }), ShouldBeTrue)
				e := out.snapshot()[0]
				So(e.Kind, ShouldEqual, model.EventSnapshotFetched)
				So(e.Seq, ShouldEqual, 1)
				So(len(e.Participants), ShouldEqual, 1)
				So(string(e.Raw), ShouldEqual, `{}`)
				So(p.Issued(), ShouldEqual, 1)
			})

			Convey("Then a second start should be rejected", func() {
				So(errors.Is(p.Start(context.Background()), poller.ErrAlreadyStarted), ShouldBeTrue)
			})
		})
	})

	Convey("Given a slow first response and a fast second one", t, func() {
		src := &fakeSource{
			delay: map[int]time.Duration{1: 150 * time.Millisecond},
			err:   map[int]error{2: errors.New("boom")},
		}
		out := &sink{}
		p := poller.New(src, out, poller.WithInterval(20*time.Millisecond))
		So(p.Start(context.Background()), ShouldBeNil)
		defer stop(p)

		Convey("Then ticks should not wait and responses should carry their own sequence", func() {
			So(waitFor(func() bool {
				for _, e := range out.snapshot() {
					if e.Seq == 1 {
						return true
					}
				}
				return false
			}), ShouldBeTrue)

			events := out.snapshot()
			So(events[0].Seq, ShouldBeGreaterThan, 1)

			var failed *model.Event
			for i := range events {
				if events[i].Seq == 2 {
					failed = &events[i]
				}
			}
			So(failed, ShouldNotBeNil)
			So(failed.Kind, ShouldEqual, model.EventFetchFailed)
			So(failed.Err, ShouldNotBeNil)
		})
	})

	Convey("Given a running poller with a request in flight", t, func() {
		src := &fakeSource{delay: map[int]time.Duration{1: time.Hour}}
		out := &sink{}
		p := poller.New(src, out, poller.WithInterval(time.Hour))
		So(p.Start(context.Background()), ShouldBeNil)
		So(waitFor(func() bool { return p.InFlight() == 1 }), ShouldBeTrue)

		Convey("When it is stopped", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := p.Stop(ctx)

			Convey("Then it should cancel the request and deliver nothing", func() {
				So(err, ShouldBeNil)
				So(p.InFlight(), ShouldEqual, 0)
				So(out.snapshot(), ShouldBeEmpty)
			})
		})
	})
}

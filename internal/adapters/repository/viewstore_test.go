package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/runtrack/internal/adapters/repository"
	"github.com/okian/runtrack/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleView(seq uint64) types.View {
	return types.View{
		Seq:          seq,
		Participants: 3,
		Markers:      []types.Marker{{RunnerID: "a"}, {RunnerID: "b"}},
		Leaderboards: []types.Leaderboard{
			{RouteID: 1, Mode: types.ModeProgress, Entries: []types.Entry{
				{Rank: 1, RunnerID: "a", RouteID: 1, Progress: 75},
				{Rank: 2, RunnerID: "b", RouteID: 1, Progress: 50},
				{Rank: 3, RunnerID: "c", RouteID: 1, Progress: 25},
			}},
			{RouteID: 2, Mode: types.ModeProgress, Entries: []types.Entry{
				{RouteID: 2, Placeholder: types.NoParticipants},
			}},
		},
	}
}

func TestViewStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty view store", t, func() {
		s := repository.NewViewStore()

		Convey("Then reads should report nothing published", func() {
			_, ok := s.View(ctx)
			So(ok, ShouldBeFalse)
			So(s.Count(ctx), ShouldEqual, 0)
			_, err := s.Rank(ctx, "a")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.Leaderboard(ctx, 1)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a published view", t, func() {
		s := repository.NewViewStore(repository.WithMaxLimit(2))
		So(s.Publish(ctx, sampleView(1)), ShouldBeNil)

		Convey("Then the view should be readable", func() {
			v, ok := s.View(ctx)
			So(ok, ShouldBeTrue)
			So(v.Seq, ShouldEqual, 1)
			So(s.Count(ctx), ShouldEqual, 3)
		})

		Convey("Then runners should be ranked", func() {
			e, err := s.Rank(ctx, "b")
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 2)
			_, err = s.Rank(ctx, "zz")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then route leaderboards should be indexed", func() {
			lb, err := s.Leaderboard(ctx, 2)
			So(err, ShouldBeNil)
			So(lb.Entries[0].IsPlaceholder(), ShouldBeTrue)
			_, err = s.Leaderboard(ctx, 9)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then TopN should honour the limit and skip placeholders", func() {
			top, err := s.TopN(ctx, 1, 2)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 2)
			So(top[1].RunnerID, ShouldEqual, "b")

			empty, err := s.TopN(ctx, 2, 1)
			So(err, ShouldBeNil)
			So(empty, ShouldBeEmpty)

			_, err = s.TopN(ctx, 1, 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			_, err = s.TopN(ctx, 1, 3)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When a newer view replaces it", func() {
			next := sampleView(2)
			next.Leaderboards = next.Leaderboards[1:]
			So(s.Publish(ctx, next), ShouldBeNil)

			Convey("Then the old indexes should be gone", func() {
				_, err := s.Rank(ctx, "a")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				v, _ := s.View(ctx)
				So(v.Seq, ShouldEqual, 2)
			})
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)

			Convey("Then publishing should fail but reads should continue", func() {
				So(errors.Is(s.Publish(ctx, sampleView(3)), repository.ErrClosed), ShouldBeTrue)
				v, ok := s.View(ctx)
				So(ok, ShouldBeTrue)
				So(v.Seq, ShouldEqual, 1)
			})
		})
	})

	Convey("Given concurrent readers and one publisher", t, func() {
		s := repository.NewViewStore()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 200; j++ {
					if v, ok := s.View(ctx); ok {
						_ = v.Leaderboards[0].Entries[0].RunnerID
					}
					_, _ = s.Rank(ctx, "a")
				}
			}()
		}
		for seq := uint64(1); seq <= 200; seq++ {
			_ = s.Publish(ctx, sampleView(seq))
		}
		wg.Wait()

		Convey("Then the last view should win", func() {
			v, _ := s.View(ctx)
			So(v.Seq, ShouldEqual, 200)
		})
	})
}

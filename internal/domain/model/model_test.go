package model_test

import (
	"encoding/json"
	"math"
	"testing"

	model "github.com/okian/runtrack/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParticipantDecoding(t *testing.T) {
	convey.Convey("Given provider participant payloads", t, func() {
		convey.Convey("When every field is present", func() {
			var p model.Participant
			err := json.Unmarshal([]byte(`{"runner_id":"r-7","positionX":1.5,"positionY":-2,
				"speedX":3,"speedY":4,"route_id":2,"current_segment":1,"timestampMs":1700000000123}`), &p)

			convey.Convey("Then it should decode them all", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.RunnerID, convey.ShouldEqual, "r-7")
				convey.So(p.HasID(), convey.ShouldBeTrue)
				x, y, ok := p.Position()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(x, convey.ShouldEqual, 1.5)
				convey.So(y, convey.ShouldEqual, -2)
				sx, sy := p.Velocity()
				convey.So(sx, convey.ShouldEqual, 3)
				convey.So(sy, convey.ShouldEqual, 4)
				convey.So(p.Route(), convey.ShouldEqual, 2)
				convey.So(p.Segment(), convey.ShouldEqual, 1)
				convey.So(p.HasSegment(), convey.ShouldBeTrue)
				convey.So(p.Recency(), convey.ShouldEqual, int64(1700000000123))
			})
		})

		convey.Convey("When optional fields are missing", func() {
			var p model.Participant
			err := json.Unmarshal([]byte(`{"runner_id":"r-1","positionX":4}`), &p)

			convey.Convey("Then the accessors should apply defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				_, _, ok := p.Position()
				convey.So(ok, convey.ShouldBeFalse)
				sx, sy := p.Velocity()
				convey.So(sx, convey.ShouldEqual, 0)
				convey.So(sy, convey.ShouldEqual, 0)
				convey.So(p.Route(), convey.ShouldEqual, model.DefaultRouteID)
				convey.So(p.Segment(), convey.ShouldEqual, 0)
				convey.So(p.HasSegment(), convey.ShouldBeFalse)
				convey.So(p.Recency(), convey.ShouldEqual, int64(math.MinInt64))
			})
		})

		convey.Convey("When the runner id is numeric", func() {
			var p model.Participant
			err := json.Unmarshal([]byte(`{"runner_id":1234567}`), &p)

			convey.Convey("Then it should keep the literal digits", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.RunnerID, convey.ShouldEqual, "1234567")
			})
		})

		convey.Convey("When only the legacy id field is present", func() {
			var p model.Participant
			err := json.Unmarshal([]byte(`{"id":42,"positionX":1,"positionY":1}`), &p)

			convey.Convey("Then it should be used as the runner id", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.RunnerID, convey.ShouldEqual, "42")
			})
		})

		convey.Convey("When no identifier is present", func() {
			var p model.Participant
			err := json.Unmarshal([]byte(`{"runner_id":null,"speedX":1}`), &p)

			convey.Convey("Then HasID should be false", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.HasID(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When timestamps differ beyond float precision", func() {
			var a, b model.Participant
			convey.So(json.Unmarshal([]byte(`{"runner_id":"7","timestampMs":9007199254740993}`), &a), convey.ShouldBeNil)
			convey.So(json.Unmarshal([]byte(`{"runner_id":"7","timestampMs":9007199254740992}`), &b), convey.ShouldBeNil)

			convey.Convey("Then both should decode exactly", func() {
				convey.So(a.Recency(), convey.ShouldEqual, int64(9007199254740993))
				convey.So(b.Recency(), convey.ShouldEqual, int64(9007199254740992))
				convey.So(a.Recency(), convey.ShouldBeGreaterThan, b.Recency())
			})
		})

		convey.Convey("When integer fields are written as integral floats", func() {
			var p model.Participant
			err := json.Unmarshal([]byte(`{"runner_id":"7","route_id":2.0,"current_segment":3e0,"timestampMs":1.5e3}`), &p)

			convey.Convey("Then they should decode as integers", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.Route(), convey.ShouldEqual, 2)
				convey.So(p.Segment(), convey.ShouldEqual, 3)
				convey.So(p.Recency(), convey.ShouldEqual, int64(1500))
			})
		})

		convey.Convey("When an integer field has a fraction", func() {
			var p model.Participant
			errRoute := json.Unmarshal([]byte(`{"runner_id":"7","route_id":2.9}`), &p)
			errSegment := json.Unmarshal([]byte(`{"runner_id":"7","current_segment":1.5}`), &p)

			convey.Convey("Then decoding should fail and name the field", func() {
				convey.So(errRoute, convey.ShouldNotBeNil)
				convey.So(errRoute.Error(), convey.ShouldContainSubstring, "route_id")
				convey.So(errSegment, convey.ShouldNotBeNil)
				convey.So(errSegment.Error(), convey.ShouldContainSubstring, "current_segment")
			})
		})

		convey.Convey("When the identifier is an object", func() {
			var p model.Participant
			err := json.Unmarshal([]byte(`{"runner_id":{"a":1}}`), &p)

			convey.Convey("Then decoding should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRouteDecoding(t *testing.T) {
	convey.Convey("Given a provider route payload", t, func() {
		var r model.Route
		err := json.Unmarshal([]byte(`{"id":1,"name":"Loop","points":[[0,0],[10,0],[10,10],[0,10],[0,0]]}`), &r)

		convey.Convey("Then points and segments should be derived", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(r.Name, convey.ShouldEqual, "Loop")
			convey.So(len(r.Points), convey.ShouldEqual, 5)
			convey.So(r.Points[2], convey.ShouldResemble, model.Point{X: 10, Y: 10})
			convey.So(r.Segments(), convey.ShouldEqual, 4)
		})

		convey.Convey("Then it should round-trip the pair encoding", func() {
			out, err := json.Marshal(r.Points[1])
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(out), convey.ShouldEqual, "[10,0]")
		})
	})

	convey.Convey("Given degenerate routes", t, func() {
		convey.So(model.Route{}.Segments(), convey.ShouldEqual, 0)
		convey.So(model.Route{Points: []model.Point{{X: 1}}}.Segments(), convey.ShouldEqual, 0)

		var p model.Point
		convey.So(json.Unmarshal([]byte(`[1,2,3]`), &p), convey.ShouldNotBeNil)
	})
}

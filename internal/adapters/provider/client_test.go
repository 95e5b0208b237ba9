package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/runtrack/internal/adapters/provider"
	. "github.com/smartystreets/goconvey/convey"
)

func serve(t *testing.T, routes map[string]func(http.ResponseWriter, *http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func body(s string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s))
	}
}

func TestFetchSnapshot(t *testing.T) {
	Convey("Given a provider serving a snapshot", t, func() {
		payload := `{"participantes":[{"runner_id":"a","positionX":1,"positionY":2,"timestampMs":5},{"runner_id":7}]}`
		srv := serve(t, map[string]func(http.ResponseWriter, *http.Request){"/dados": body(payload)})
		c := provider.New(srv.URL + "/")

		Convey("When the snapshot is fetched", func() {
			s, err := c.FetchSnapshot(context.Background())

			Convey("Then participants and raw payload should be returned", func() {
				So(err, ShouldBeNil)
				So(len(s.Participants), ShouldEqual, 2)
				So(s.Participants[0].RunnerID, ShouldEqual, "a")
				So(s.Participants[1].RunnerID, ShouldEqual, "7")
				So(string(s.Raw), ShouldEqual, payload)
			})
		})

		Convey("When only the participants are requested", func() {
			ps, err := c.FetchParticipants(context.Background())

			Convey("Then the list should be returned", func() {
				So(err, ShouldBeNil)
				So(len(ps), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a provider without a participant list", t, func() {
		srv := serve(t, map[string]func(http.ResponseWriter, *http.Request){"/dados": body(`{}`)})

		Convey("Then the snapshot should be empty, not an error", func() {
			ps, err := provider.New(srv.URL).FetchParticipants(context.Background())
			So(err, ShouldBeNil)
			So(ps, ShouldNotBeNil)
			So(ps, ShouldBeEmpty)
		})
	})

	Convey("Given a provider failing with 503", t, func() {
		srv := serve(t, map[string]func(http.ResponseWriter, *http.Request){
			"/dados": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
		})

		Convey("Then the error should match ErrStatus", func() {
			_, err := provider.New(srv.URL).FetchParticipants(context.Background())
			So(errors.Is(err, provider.ErrStatus), ShouldBeTrue)
			var se *provider.StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	Convey("Given a provider returning malformed JSON", t, func() {
		srv := serve(t, map[string]func(http.ResponseWriter, *http.Request){"/dados": body(`{"participantes":[`)})

		Convey("Then the error should match ErrDecode", func() {
			_, err := provider.New(srv.URL).FetchParticipants(context.Background())
			So(errors.Is(err, provider.ErrDecode), ShouldBeTrue)
		})
	})

	Convey("Given an unreachable provider", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("Then the error should match ErrTransport", func() {
			_, err := provider.New(url).FetchParticipants(context.Background())
			So(errors.Is(err, provider.ErrTransport), ShouldBeTrue)
		})
	})

	Convey("Given a slow provider and a short timeout", t, func() {
		release := make(chan struct{})
		srv := serve(t, map[string]func(http.ResponseWriter, *http.Request){
			"/dados": func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			},
		})
		defer close(release)

		Convey("Then the request should fail with a transport error", func() {
			_, err := provider.New(srv.URL, provider.WithTimeout(20*time.Millisecond)).FetchParticipants(context.Background())
			So(errors.Is(err, provider.ErrTransport), ShouldBeTrue)
		})
	})
}

func TestFetchRoutes(t *testing.T) {
	Convey("Given a provider serving routes on a custom path", t, func() {
		srv := serve(t, map[string]func(http.ResponseWriter, *http.Request){
			"/api/routes": body(`{"rutas":[{"id":2,"name":"East","points":[[0,0],[1,1],[2,2]]}]}`),
			"/empty":      body(`{"other":true}`),
		})

		Convey("When routes are fetched", func() {
			rs, err := provider.New(srv.URL, provider.WithRoutesPath("/api/routes")).FetchRoutes(context.Background())

			Convey("Then the routes should be decoded", func() {
				So(err, ShouldBeNil)
				So(len(rs), ShouldEqual, 1)
				So(rs[0].ID, ShouldEqual, 2)
				So(rs[0].Segments(), ShouldEqual, 2)
			})
		})

		Convey("When the payload has no route list", func() {
			rs, err := provider.New(srv.URL, provider.WithRoutesPath("/empty")).FetchRoutes(context.Background())

			Convey("Then there should be no routes and no error", func() {
				So(err, ShouldBeNil)
				So(rs, ShouldBeEmpty)
			})
		})

		Convey("When the default path is missing", func() {
			_, err := provider.New(srv.URL).FetchRoutes(context.Background())

			Convey("Then a status error should be returned", func() {
				So(errors.Is(err, provider.ErrStatus), ShouldBeTrue)
			})
		})
	})
}

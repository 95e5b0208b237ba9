package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/runtrack/internal/config"
	"github.com/okian/runtrack/internal/domain/types"
	"github.com/okian/runtrack/pkg/logger"
	"github.com/okian/runtrack/pkg/metrics"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func fakeProvider() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/dados", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"participantes":[
			{"runner_id":"101","positionX":10,"positionY":5,"speedX":1,"speedY":1,"route_id":1,"current_segment":2,"timestampMs":10},
			{"runner_id":"101","positionX":1,"positionY":1,"route_id":1,"current_segment":1,"timestampMs":5},
			{"runner_id":"22","positionX":20,"positionY":5,"route_id":1,"current_segment":1,"timestampMs":7}
		]}`))
	})
	mux.HandleFunc("/rutas", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"rutas":[{"id":1,"name":"Loop","points":[[0,0],[10,0],[10,10],[0,0]]}]}`))
	})
	return httptest.NewServer(mux)
}

func TestNewService(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New()

		convey.Convey("When building the session", func() {
			svc, err := newService(cfg, logger.Get())

			convey.Convey("Then it should be created without starting", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.ID(), convey.ShouldNotBeEmpty)
				convey.So(svc.GetStats()["started"], convey.ShouldBeFalse)
			})

			convey.Convey("And the API should report it unavailable", func() {
				mux := newMux(context.Background(), svc)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		convey.Convey("When an offset key is not a route id", func() {
			cfg.Map.RouteOffsets = map[string]config.Offset{"north": {}}
			_, err := newService(cfg, logger.Get())

			convey.Convey("Then building should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given a metrics section", t, func() {
		cfg := config.New()
		cfg.Metrics.Namespace = "tracker"
		cfg.Metrics.Subsystem = "edge"
		cfg.Metrics.FetchEnabled = false
		cfg.Metrics.RefreshIntervalMS = 2500
		cfg.Metrics.Labels = map[string]string{"env": "staging"}

		convey.Convey("When a manager is built from it", func() {
			registry := prometheus.NewRegistry()
			m := metrics.NewManager(append(metricsOptions(cfg), metrics.WithPrometheusRegistry(registry))...)

			convey.Convey("Then every setting should be applied", func() {
				convey.So(m.Enabled(), convey.ShouldBeFalse)
				convey.So(m.RefreshInterval(), convey.ShouldEqual, 2500*time.Millisecond)

				families, err := registry.Gather()
				convey.So(err, convey.ShouldBeNil)
				convey.So(families, convey.ShouldNotBeEmpty)
				for _, f := range families {
					convey.So(f.GetName(), convey.ShouldStartWith, "tracker_edge_")
					convey.So(f.GetMetric()[0].GetLabel()[0].GetValue(), convey.ShouldEqual, "staging")
				}
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a running provider", t, func() {
		upstream := fakeProvider()
		defer upstream.Close()

		_ = os.Setenv("RUNTRACK_PROVIDER_URL", upstream.URL)
		_ = os.Setenv("RUNTRACK_POLL_INTERVAL_MS", "20")
		defer func() {
			_ = os.Unsetenv("RUNTRACK_PROVIDER_URL")
			_ = os.Unsetenv("RUNTRACK_POLL_INTERVAL_MS")
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.ProviderURL, convey.ShouldEqual, upstream.URL)

		svc, err := newService(cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := newMux(ctx, svc)

		convey.Convey("When the session has applied a snapshot and the catalog", func() {
			var v types.View
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view", http.NoBody))
				if w.Code == http.StatusOK {
					_ = json.Unmarshal(w.Body.Bytes(), &v)
					if len(v.Markers) > 0 && len(v.Overlays) > 0 {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
			}

			convey.Convey("Then each runner should appear once with the newest record", func() {
				convey.So(v.SessionID, convey.ShouldEqual, svc.ID())
				convey.So(len(v.Markers), convey.ShouldEqual, 2)
				convey.So(v.Participants, convey.ShouldEqual, 2)
				convey.So(v.Markers[0].RunnerID, convey.ShouldEqual, "101")
				convey.So(v.Markers[0].PositionX, convey.ShouldEqual, 10)
			})

			convey.Convey("Then the route leaderboard should rank by progress", func() {
				convey.So(len(v.Leaderboards), convey.ShouldEqual, 1)
				lb := v.Leaderboards[0]
				convey.So(lb.RouteName, convey.ShouldEqual, "Loop")
				convey.So(lb.Entries[0].RunnerID, convey.ShouldEqual, "101")
				convey.So(lb.Entries[1].RunnerID, convey.ShouldEqual, "22")
			})

			convey.Convey("Then the docs and dashboard should be served", func() {
				for _, path := range []string{"/openapi.yaml", "/dashboard", "/stats", "/healthz"} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updater should return once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx, 10*time.Millisecond)
				close(done)
			}()

			select {
			case <-done:
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("updater did not stop", convey.ShouldBeEmpty)
			}
		})
	})
}

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/endurank/internal/app"
	"github.com/okian/endurank/internal/config"
	"github.com/okian/endurank/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.WorkerCount = 2
	cfg.QueueSize = 100
	return cfg
}

func TestMainConfig(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		t.Setenv("ENDURANK_ADDR", ":8080")
		t.Setenv("ENDURANK_QUEUE_SIZE", "1000")
		t.Setenv("ENDURANK_WORKER_COUNT", "4")

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		})
	})

	convey.Convey("Given an empty listen address", t, func() {
		t.Setenv("ENDURANK_ADDR", "")

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		cfg := testConfig()

		convey.Convey("Then options build without external clients", func() {
			opts, closeDeps, err := serviceOptions(cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			convey.So(opts, convey.ShouldNotBeEmpty)
			convey.So(closeDeps, convey.ShouldNotPanic)
		})

		convey.Convey("When a redis address is configured", func() {
			mr := miniredis.RunT(t)
			cfg.RedisAddr = mr.Addr()

			convey.Convey("Then the service gets a price cache", func() {
				opts, closeDeps, err := serviceOptions(cfg, logger.Nop())
				convey.So(err, convey.ShouldBeNil)
				defer closeDeps()

				svc := app.New(opts...)
				convey.So(svc.GetStats()["priceCache"], convey.ShouldEqual, true)
			})
		})

		convey.Convey("When the gazetteer file is missing", func() {
			cfg.GazetteerPath = "/nonexistent/gazetteer.yaml"

			convey.Convey("Then building options fails", func() {
				_, _, err := serviceOptions(cfg, logger.Nop())
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a sync source has an unknown kind", func() {
			cfg.SyncSources = []config.SyncSource{{Name: "ftp", Kind: "ftp", Location: "ftp://races"}}

			convey.Convey("Then building options fails", func() {
				_, _, err := serviceOptions(cfg, logger.Nop())
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := app.New(app.WithSeed(false), app.WithWorkerCount(1))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := newMux(ctx, svc, 50)

		convey.Convey("Then the API, reference and docs routes are served", func() {
			for _, path := range []string{"/healthz", "/stats", "/search?q=boulder", "/listings/races", "/api-docs", "/openapi.yaml", "/docs/"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then the listing limit is enforced", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/listings/gear?limit=51", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a configuration with the seed calendar", t, func() {
		cfg := testConfig()

		convey.Convey("Then the server runs until the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			convey.So(run(ctx, cfg, logger.Get()), convey.ShouldBeNil)
		})

		convey.Convey("When the address is already taken", func() {
			ln := httptest.NewServer(http.NotFoundHandler())
			defer ln.Close()
			cfg.Addr = ln.Listener.Addr().String()

			convey.Convey("Then run reports the listener failure", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				convey.So(run(ctx, cfg, logger.Get()), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service", t, func() {
		svc := app.New()

		convey.Convey("Then the updater returns once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})
	})
}

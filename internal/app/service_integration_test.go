package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/okian/endurank/internal/adapters/cache"
	"github.com/okian/endurank/internal/adapters/repository"
	service "github.com/okian/endurank/internal/app"
	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/domain/scoring"
	"github.com/okian/endurank/internal/domain/types"
	"github.com/okian/endurank/internal/racesync"
	. "github.com/smartystreets/goconvey/convey"
)

func raceNames(items []types.ScoredItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Item.Name()
	}
	return out
}

func waitForRun(svc *service.Service, runID string) types.SyncSummary {
	deadline := time.Now().Add(5 * time.Second)
	for {
		run, err := svc.SyncRun(runID)
		if (err == nil && run.Pending() == 0) || time.Now().After(deadline) {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
}

var errLookupDown = errors.New("lookup unavailable")

// lookupFailingStore fails category lookups once failing is set.
type lookupFailingStore struct {
	repository.Store
	failing *atomic.Bool
}

func (s lookupFailingStore) FindByFields(ctx context.Context, kind model.Kind, fields map[string]any) ([]model.Item, error) {
	if s.failing.Load() {
		return nil, errLookupDown
	}
	return s.Store.FindByFields(ctx, kind, fields)
}

func TestServiceIntegration_Search(t *testing.T) {
	Convey("Given a service seeded with the bundled race calendar", t, func() {
		svc := startService(t, service.WithStore(newCatalog(t)), service.WithSeed(true))
		ctx := context.Background()

		Convey("When searching with a distance and a state", func() {
			res, err := svc.Search(ctx, "half ironman in texas", "")

			Convey("Then only races meeting every constraint are returned", func() {
				So(err, ShouldBeNil)
				So(res.Fallback, ShouldBeFalse)
				So(raceNames(res.Races), ShouldResemble, []string{"IRONMAN 70.3 Austin"})
				So(res.Gear, ShouldBeEmpty)
				So(res.Sensitivity, ShouldEqual, scoring.SensitivityMidRange)
				So(res.ByDistance[model.DistanceHalf], ShouldEqual, 1)
				So(res.ByDistance[model.DistanceFull], ShouldEqual, 0)
				So(res.Summary, ShouldNotBeEmpty)
			})
		})

		Convey("When searching by state only", func() {
			res, err := svc.Search(ctx, "triathlons in california", scoring.SensitivityEconomy)

			Convey("Then every distance in the state is counted", func() {
				So(err, ShouldBeNil)
				So(res.Total, ShouldEqual, 3)
				So(res.ByDistance[model.DistanceSprint], ShouldEqual, 1)
				So(res.ByDistance[model.DistanceOlympic], ShouldEqual, 1)
				So(res.ByDistance[model.DistanceHalf], ShouldEqual, 1)
				for _, r := range res.Races {
					So(r.Relevance, ShouldBeGreaterThan, 0)
				}
			})
		})

		Convey("When the query names nothing structured", func() {
			res, err := svc.Search(ctx, "alcatraz", "")

			Convey("Then races fall back to substring matching", func() {
				So(err, ShouldBeNil)
				So(res.Fallback, ShouldBeTrue)
				So(raceNames(res.Races), ShouldResemble, []string{"Escape from Alcatraz Triathlon"})
			})
		})

		Convey("When an unstructured query names a gear brand", func() {
			res, err := svc.Search(ctx, "canyon", "")

			Convey("Then live gear is matched too", func() {
				So(err, ShouldBeNil)
				So(res.Races, ShouldBeEmpty)
				So(res.Gear, ShouldHaveLength, 1)
				So(res.Gear[0].Item.Common().ID, ShouldEqual, "gear-a")
				So(res.Total, ShouldEqual, 1)
			})
		})

		Convey("When the query is empty", func() {
			res, err := svc.Search(ctx, "", "")

			Convey("Then every live race is returned and no gear", func() {
				So(err, ShouldBeNil)
				So(res.Races, ShouldHaveLength, 11)
				So(res.Gear, ShouldBeEmpty)
			})
		})

		Convey("Seeded races are listed", func() {
			l, err := svc.Listing(ctx, model.KindRace, scoring.SensitivityMidRange, 100)
			So(err, ShouldBeNil)
			So(l.Total, ShouldEqual, 11)
		})
	})
}

func TestServiceIntegration_Sync(t *testing.T) {
	Convey("Given a service syncing from a static feed through the workers", t, func() {
		feed := racesync.NewStaticSource("feed",
			model.RawRace{
				ExternalID:       "feed-1",
				Name:             "Harbor Sprint",
				Date:             "2027-05-01",
				City:             "Boston",
				State:            "MA",
				Distance:         model.DistanceSprint,
				RegistrationCost: 90,
			},
			model.RawRace{
				ExternalID:       "feed-2",
				Name:             "Lakeside Olympic",
				Date:             "2027-07-10",
				City:             "Madison",
				State:            "WI",
				Distance:         model.DistanceOlympic,
				RegistrationCost: 180,
			},
			model.RawRace{ExternalID: "feed-bad", Name: "No State", Date: "2027-07-10", Distance: model.DistanceFull},
		)
		svc := startService(t, service.WithSources(feed))
		ctx := context.Background()

		Convey("When a sync is triggered", func() {
			started, err := svc.TriggerSync(ctx)
			So(err, ShouldBeNil)
			So(started.RunID, ShouldNotBeEmpty)
			So(started.Enqueued, ShouldEqual, 3)
			So(started.StartedAt, ShouldEqual, testNow)

			run := waitForRun(svc, started.RunID)

			Convey("Then the workers apply every record", func() {
				So(run.Added, ShouldEqual, 2)
				So(run.Failed, ShouldEqual, 1)
				So(run.Pending(), ShouldEqual, 0)
			})

			Convey("Then the new races are searchable and listed", func() {
				res, err := svc.Search(ctx, "sprint in massachusetts", "")
				So(err, ShouldBeNil)
				So(raceNames(res.Races), ShouldResemble, []string{"Harbor Sprint"})

				l, err := svc.Listing(ctx, model.KindRace, scoring.SensitivityMidRange, 10)
				So(err, ShouldBeNil)
				So(l.Total, ShouldEqual, 2)
			})

			Convey("Then a second run inside the refresh window skips them", func() {
				again, err := svc.TriggerSync(ctx)
				So(err, ShouldBeNil)
				run := waitForRun(svc, again.RunID)
				So(run.Skipped, ShouldEqual, 2)
				So(run.Added, ShouldEqual, 0)
			})

			Convey("Then stats report the last run", func() {
				stats := svc.GetStats()
				So(stats["lastSync"], ShouldHaveSameTypeAs, types.SyncSummary{})
			})
		})

		Convey("An unknown run is reported", func() {
			_, err := svc.SyncRun("missing")
			So(errors.Is(err, service.ErrRunNotFound), ShouldBeTrue)
		})
	})
}

func TestServiceIntegration_PriceCache(t *testing.T) {
	Convey("Given a service with a redis price cache", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		prices := cache.NewRedisCache(client, cache.WithTTL(time.Minute))

		svc := startService(t, service.WithStore(newCatalog(t)), service.WithPriceCache(prices))
		ctx := context.Background()

		Convey("Start caches the maximum of each live category", func() {
			v, err := prices.MaxPrice(ctx, model.KindGear, string(model.SubCategoryBikes))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 8000)
		})

		Convey("Search reads the cached maximum", func() {
			So(prices.SetMaxPrice(ctx, model.KindGear, string(model.SubCategoryBikes), 4000), ShouldBeNil)
			res, err := svc.Search(ctx, "speedmax", scoring.SensitivityEconomy)
			So(err, ShouldBeNil)
			So(res.Gear, ShouldHaveLength, 1)
			So(res.Gear[0].Endurank, ShouldEqual,
				scoring.NewEngine().ScoreItem(res.Gear[0].Item, scoring.SensitivityEconomy, 4000))
		})

		Convey("An expired entry is recomputed from the store", func() {
			mr.FastForward(2 * time.Minute)
			res, err := svc.Search(ctx, "madone", scoring.SensitivityEconomy)
			So(err, ShouldBeNil)
			So(res.Gear, ShouldHaveLength, 1)
			v, err := prices.MaxPrice(ctx, model.KindGear, string(model.SubCategoryBikes))
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 8000)
		})
	})
}

func TestServiceIntegration_PriceCacheInvalidation(t *testing.T) {
	Convey("Given a cached category maximum and a store whose lookups start failing", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		prices := cache.NewRedisCache(client, cache.WithTTL(time.Minute))

		var failing atomic.Bool
		store := lookupFailingStore{Store: newCatalog(t), failing: &failing}
		svc := startService(t, service.WithStore(store), service.WithPriceCache(prices))
		ctx := context.Background()

		v, err := prices.MaxPrice(ctx, model.KindGear, string(model.SubCategoryBikes))
		So(err, ShouldBeNil)
		So(v, ShouldEqual, 8000)
		failing.Store(true)

		Convey("When a pending bike goes live", func() {
			item, err := svc.Moderate(ctx, model.KindGear, "gear-d", model.StatusLive)
			So(err, ShouldBeNil)
			So(item.Common().Status, ShouldEqual, model.StatusLive)

			Convey("Then the stale maximum is dropped for the next read to recompute", func() {
				_, err := prices.MaxPrice(ctx, model.KindGear, string(model.SubCategoryBikes))
				So(errors.Is(err, cache.ErrMiss), ShouldBeTrue)
			})

			Convey("Then other categories keep their cached maximum", func() {
				v, err := prices.MaxPrice(ctx, model.KindGear, string(model.SubCategoryRunningShoes))
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 145)
			})
		})
	})
}

func TestServiceIntegration_StopDrainsQueue(t *testing.T) {
	Convey("Given a service whose start context is cancelled after start", t, func() {
		feed := racesync.NewStaticSource("feed",
			model.RawRace{Name: "Harbor Sprint", Date: "2027-05-01", City: "Boston", State: "MA", Distance: model.DistanceSprint},
			model.RawRace{Name: "Lakeside Olympic", Date: "2027-07-10", City: "Madison", State: "WI", Distance: model.DistanceOlympic},
		)
		store := newCatalog(t)
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(100),
			service.WithClock(fixedClock()),
			service.WithStore(store),
			service.WithSources(feed),
		)
		startCtx, cancel := context.WithCancel(context.Background())
		So(svc.Start(startCtx), ShouldBeNil)
		cancel()

		Convey("When a sync is dispatched and the service stops", func() {
			started, err := svc.TriggerSync(context.Background())
			So(err, ShouldBeNil)
			So(started.Enqueued, ShouldEqual, 2)
			svc.Stop()

			Convey("Then the queued records were still applied", func() {
				run, err := svc.SyncRun(started.RunID)
				So(err, ShouldBeNil)
				So(run.Added, ShouldEqual, 2)

				n, err := store.Count(context.Background(), model.KindRace)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})
	})
}

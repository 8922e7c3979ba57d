package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/endurank/internal/adapters/cache"
	"github.com/okian/endurank/internal/domain/model"
)

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	Convey("Given a cache backed by miniredis", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		c := cache.NewRedisCache(client, cache.WithTTL(time.Minute), cache.WithKeyPrefix("test"))

		Convey("When nothing is cached", func() {
			_, err := c.MaxPrice(ctx, model.KindGear, "bikes")
			So(errors.Is(err, cache.ErrMiss), ShouldBeTrue)
		})

		Convey("When a maximum is stored", func() {
			So(c.SetMaxPrice(ctx, model.KindGear, "bikes", 8999.5), ShouldBeNil)

			Convey("Then it reads back under a namespaced key", func() {
				v, err := c.MaxPrice(ctx, model.KindGear, "bikes")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 8999.5)
				So(mr.Exists("test:gear:bikes"), ShouldBeTrue)
			})

			Convey("Then categories do not collide", func() {
				_, err := c.MaxPrice(ctx, model.KindRace, "bikes")
				So(errors.Is(err, cache.ErrMiss), ShouldBeTrue)
			})

			Convey("Then it expires after the TTL", func() {
				mr.FastForward(2 * time.Minute)
				_, err := c.MaxPrice(ctx, model.KindGear, "bikes")
				So(errors.Is(err, cache.ErrMiss), ShouldBeTrue)
			})

			Convey("Then invalidation drops it", func() {
				So(c.Invalidate(ctx, model.KindGear, "bikes"), ShouldBeNil)
				_, err := c.MaxPrice(ctx, model.KindGear, "bikes")
				So(errors.Is(err, cache.ErrMiss), ShouldBeTrue)
			})
		})

		Convey("When redis goes away", func() {
			mr.Close()
			_, err := c.MaxPrice(ctx, model.KindGear, "bikes")

			Convey("Then the failure is not mistaken for a miss", func() {
				So(errors.Is(err, cache.ErrUnavailable), ShouldBeTrue)
				So(errors.Is(err, cache.ErrMiss), ShouldBeFalse)
			})
		})
	})
}

package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/poolboard/internal/adapters/cache"
	"github.com/okian/poolboard/internal/adapters/upstream"
	service "github.com/okian/poolboard/internal/app"
	"github.com/okian/poolboard/internal/domain/model"
	"github.com/okian/poolboard/pkg/logger"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over redis and a players API", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = client.Close() }()

		var mu sync.Mutex
		body := `[
		  {"name": "aria", "real_name": "Aria", "season_elo": 1100, "slack_id": "U1", "active": true, "season_match_count": 9},
		  {"name": "ned", "real_name": "", "season_elo": 999, "slack_id": "U2", "active": true, "season_match_count": 3},
		  {"name": "kit", "real_name": "Kit", "season_elo": 999, "slack_id": "U3", "active": true, "season_match_count": 5},
		  {"name": "bo", "real_name": "Bo", "season_elo": 800, "slack_id": "U4", "active": true, "season_match_count": 1},
		  {"name": "old", "real_name": "Old", "season_elo": 2000, "slack_id": "U5", "active": false, "season_match_count": 40},
		  {"name": "new", "real_name": "New", "season_elo": 1500, "slack_id": "U6", "active": true, "season_match_count": 0}
		]`
		var calls int32
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			if r.Header.Get("Authorization") != "Token t0k3n" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			_, _ = w.Write([]byte(body))
		}))
		defer api.Close()

		clock := newClock()
		store := cache.NewRedisStore(client, cache.WithKeyPrefix("poolboard:"))
		svc := service.New(store, upstream.New(api.URL, "t0k3n"),
			service.WithClock(clock.Now),
			service.WithLogger(logger.Named("controller")),
		)

		Convey("When the first request arrives", func() {
			res, err := svc.Leaderboard(ctx)

			Convey("Then inactive and match-less players are dropped and ties marked", func() {
				So(err, ShouldBeNil)
				So(names(res.Players), ShouldResemble, []string{"Aria", "ned", "Kit", "Bo"})
				positions := make([]string, len(res.Players))
				for i, p := range res.Players {
					positions[i] = p.Position.String()
				}
				So(positions, ShouldResemble, []string{"1", "2", model.TieMarker, "4"})
				So(mr.Exists("poolboard:players"), ShouldBeTrue)
				So(mr.Exists("poolboard:last_updated_at"), ShouldBeTrue)
			})
		})

		Convey("When a score changes after the cache expires", func() {
			_, err := svc.Leaderboard(ctx)
			So(err, ShouldBeNil)

			mu.Lock()
			body = `[{"name": "aria", "real_name": "Aria", "season_elo": 1080, "slack_id": "U1", "active": true, "season_match_count": 10}]`
			mu.Unlock()
			clock.Advance(30 * time.Second)
			res, err := svc.Leaderboard(ctx)

			Convey("Then the new leaderboard and the previous one should be stored", func() {
				So(err, ShouldBeNil)
				So(res.Players, ShouldHaveLength, 1)
				So(res.Players[0].Diff, ShouldEqual, -20)
				So(mr.Exists("poolboard:players_previous"), ShouldBeTrue)
				So(atomic.LoadInt32(&calls), ShouldEqual, 2)
			})
		})

		Convey("When redis goes away after a commit", func() {
			_, err := svc.Leaderboard(ctx)
			So(err, ShouldBeNil)
			mr.SetError("ERR injected outage")
			res, err := svc.Leaderboard(ctx)

			Convey("Then requests should still be answered from upstream", func() {
				So(err, ShouldBeNil)
				So(res.Players, ShouldHaveLength, 4)
				So(atomic.LoadInt32(&calls), ShouldEqual, 2)
			})
		})
	})
}

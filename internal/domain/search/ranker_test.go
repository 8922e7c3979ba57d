package search_test

import (
	"testing"
	"time"

	model "github.com/okian/endurank/internal/domain/model"
	query "github.com/okian/endurank/internal/domain/query"
	search "github.com/okian/endurank/internal/domain/search"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newRace(id, name string, d model.Distance, city, state string, date time.Time) *model.Race {
	r := &model.Race{
		RaceName: name,
		Distance: d,
		Date:     date,
		Location: model.Location{City: city, State: state},
	}
	r.ID = id
	return r
}

func ids(races []*model.Race) []string {
	out := make([]string, len(races))
	for i, r := range races {
		out[i] = r.ID
	}
	return out
}

func f(v float64) *float64 { return &v }

func TestRankEndToEnd(t *testing.T) {
	Convey("Given two upcoming sprint races in different states", t, func() {
		ranker := search.NewRanker(search.WithClock(model.ClockFunc(func() time.Time { return now })))
		parser := query.NewParser(query.WithClock(model.ClockFunc(func() time.Time { return now })))
		candidates := []*model.Race{
			newRace("austin", "Austin Sprint Tri", model.DistanceSprint, "Austin", "TX", now.AddDate(0, 0, 30)),
			newRace("chicago", "Chicago Sprint", model.DistanceSprint, "Chicago", "IL", now.AddDate(0, 0, 10)),
		}

		Convey("When searching for sprint races in Texas", func() {
			raw := "sprint races in Texas"
			got := ranker.Rank(candidates, parser.Parse(raw), raw)

			Convey("Then only the Texas race is returned", func() {
				So(ids(got), ShouldResemble, []string{"austin"})
			})
		})
	})
}

func TestRankScoring(t *testing.T) {
	Convey("Given a ranker pinned in time", t, func() {
		ranker := search.NewRanker(search.WithClock(model.ClockFunc(func() time.Time { return now })))

		Convey("When the query names a distance, state, city and organizer", func() {
			oceanside := newRace("o", "Oceanside 70.3", model.DistanceHalf, "Oceanside", "CA", now.AddDate(0, 1, 0))
			oceanside.OrganizerSeries = "IRONMAN"
			oceanside.IsQualifier = true
			q := query.ParsedQuery{
				Distances:  []model.Distance{model.DistanceHalf},
				Locations:  query.Locations{Cities: []string{"oceanside"}, States: []string{"CA"}},
				Organizers: []string{"ironman"},
				Filters:    query.Filters{IsQualifier: true},
			}
			got := ranker.RankScored([]*model.Race{oceanside}, q, "oceanside 70.3")

			Convey("Then every signal adds up", func() {
				So(got, ShouldHaveLength, 1)
				// exact name, distance, state, city, organizer, qualifier, upcoming
				So(got[0].Relevance, ShouldEqual, 100+30+20+40+25+15+5)
			})
		})

		Convey("When relevance ties", func() {
			later := newRace("later", "Lake Sprint", model.DistanceSprint, "Madison", "WI", now.AddDate(0, 2, 0))
			sooner := newRace("sooner", "River Sprint", model.DistanceSprint, "Madison", "WI", now.AddDate(0, 1, 0))
			q := query.ParsedQuery{Distances: []model.Distance{model.DistanceSprint}}

			Convey("Then the sooner race comes first", func() {
				So(ids(ranker.Rank([]*model.Race{later, sooner}, q, "")), ShouldResemble, []string{"sooner", "later"})
			})
		})

		Convey("When races tie on every signal and date", func() {
			date := now.AddDate(0, 1, 0)
			var races []*model.Race
			for _, id := range []string{"c", "a", "b", "d"} {
				races = append(races, newRace(id, "Sprint "+id, model.DistanceSprint, "Tampa", "FL", date))
			}
			q := query.ParsedQuery{Distances: []model.Distance{model.DistanceSprint}}

			Convey("Then input order is kept", func() {
				So(ids(ranker.Rank(races, q, "")), ShouldResemble, []string{"c", "a", "b", "d"})
			})
		})

		Convey("When a past race matches better than a future one", func() {
			past := newRace("past", "Tampa Bay Sprint", model.DistanceSprint, "Tampa", "FL", now.AddDate(0, -1, 0))
			future := newRace("future", "Other Sprint", model.DistanceSprint, "Tampa", "FL", now.AddDate(0, 1, 0))
			q := query.ParsedQuery{Distances: []model.Distance{model.DistanceSprint}}
			got := ranker.RankScored([]*model.Race{future, past}, q, "tampa bay")

			Convey("Then the name match outweighs the upcoming boost", func() {
				So(got[0].Race.ID, ShouldEqual, "past")
				So(got[0].Relevance, ShouldEqual, 50+30)
				So(got[1].Relevance, ShouldEqual, 30+5)
			})
		})
	})
}

func TestRankFilters(t *testing.T) {
	Convey("Given a mixed candidate list", t, func() {
		ranker := search.NewRanker(search.WithClock(model.ClockFunc(func() time.Time { return now })))
		cheap := newRace("cheap", "Cheap Sprint", model.DistanceSprint, "Austin", "TX", now.AddDate(0, 2, 0))
		cheap.MSRP = 90
		pricey := newRace("pricey", "Pricey Full", model.DistanceFull, "Lake Placid", "NY", now.AddDate(0, 4, 0))
		pricey.MSRP = 850
		pricey.IsQualifier = true
		pricey.OrganizerSeries = "Ironman"
		candidates := []*model.Race{cheap, pricey}

		Convey("When a maximum price is set", func() {
			q := query.ParsedQuery{Filters: query.Filters{PriceRange: &query.PriceRange{Max: f(100)}}}
			So(ids(ranker.Rank(candidates, q, "")), ShouldResemble, []string{"cheap"})
		})

		Convey("When a minimum price is set", func() {
			q := query.ParsedQuery{Filters: query.Filters{PriceRange: &query.PriceRange{Min: f(100)}}}
			So(ids(ranker.Rank(candidates, q, "")), ShouldResemble, []string{"pricey"})
		})

		Convey("When qualifiers are requested", func() {
			q := query.ParsedQuery{Filters: query.Filters{IsQualifier: true}}
			So(ids(ranker.Rank(candidates, q, "")), ShouldResemble, []string{"pricey"})
		})

		Convey("When a date window is set", func() {
			start := now.AddDate(0, 1, 0)
			q := query.ParsedQuery{Filters: query.Filters{DateRange: &query.DateRange{Start: start, End: start.AddDate(0, 2, 0)}}}
			So(ids(ranker.Rank(candidates, q, "")), ShouldResemble, []string{"cheap"})
		})

		Convey("When the organizer is named", func() {
			q := query.ParsedQuery{Organizers: []string{"ironman"}}
			So(ids(ranker.Rank(candidates, q, "")), ShouldResemble, []string{"pricey"})
		})

		Convey("When a city and a conflicting state are named", func() {
			q := query.ParsedQuery{Locations: query.Locations{Cities: []string{"austin"}, States: []string{"NY"}}}

			Convey("Then every constraint must hold and nothing matches", func() {
				So(ranker.Rank(candidates, q, ""), ShouldBeEmpty)
			})
		})
	})
}

func TestRankFallback(t *testing.T) {
	Convey("Given a query with no structured terms", t, func() {
		ranker := search.NewRanker(search.WithClock(model.ClockFunc(func() time.Time { return now })))
		byName := newRace("name", "Purple Patch Tri", model.DistanceOlympic, "Fresno", "CA", now.AddDate(0, 3, 0))
		byOrganizer := newRace("org", "Valley Classic", model.DistanceSprint, "Fresno", "CA", now.AddDate(0, 1, 0))
		byOrganizer.OrganizerSeries = "Purple Events"
		miss := newRace("miss", "Valley Olympic", model.DistanceOlympic, "Fresno", "CA", now.AddDate(0, 1, 0))
		q := query.Parse("purple")

		So(q.Structured(), ShouldBeFalse)

		Convey("When ranking", func() {
			got := ranker.RankScored([]*model.Race{miss, byOrganizer, byName}, q, "Purple")

			Convey("Then the raw text is matched against race fields", func() {
				So(got, ShouldHaveLength, 2)
				So(got[0].Race.ID, ShouldEqual, "name")
				So(got[1].Race.ID, ShouldEqual, "org")
			})
		})
	})
}

func TestMatchGear(t *testing.T) {
	Convey("Given gear items", t, func() {
		clifton := &model.Gear{ProductName: "Clifton 9", Brand: "Hoka", SubCategory: model.SubCategoryRunningShoes}
		speedmax := &model.Gear{ProductName: "Speedmax CF 8", Brand: "Canyon", SubCategory: model.SubCategoryBikes}
		gel := &model.Gear{ProductName: "Gel 100", Brand: "Maurten", SubCategory: model.SubCategoryNutrition}
		items := []*model.Gear{clifton, speedmax, gel}

		So(search.MatchGear(items, "HOKA"), ShouldResemble, []*model.Gear{clifton})
		So(search.MatchGear(items, "speedmax"), ShouldResemble, []*model.Gear{speedmax})
		So(search.MatchGear(items, "nutrition"), ShouldResemble, []*model.Gear{gel})
		So(search.MatchGear(items, "zipp"), ShouldBeEmpty)
	})

	Convey("Given races of several distances", t, func() {
		counts := search.CountByDistance([]*model.Race{
			{Distance: model.DistanceSprint},
			{Distance: model.DistanceSprint},
			{Distance: model.DistanceFull},
		})
		So(counts[model.DistanceSprint], ShouldEqual, 2)
		So(counts[model.DistanceFull], ShouldEqual, 1)
		So(counts, ShouldContainKey, model.DistanceOlympic)
	})
}

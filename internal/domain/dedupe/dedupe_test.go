package dedupe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	dedupe "github.com/okian/endurank/internal/domain/dedupe"
	model "github.com/okian/endurank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeCatalog answers lookups from a fixed item list and records calls.
type fakeCatalog struct {
	items []model.Item
	err   error
	calls []string
}

func (f *fakeCatalog) FindByField(_ context.Context, kind model.Kind, field string, value any) ([]model.Item, error) {
	return f.FindByFields(context.Background(), kind, map[string]any{field: value})
}

func (f *fakeCatalog) FindByFields(_ context.Context, kind model.Kind, fields map[string]any) ([]model.Item, error) {
	f.calls = append(f.calls, "find")
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Item
	for _, it := range f.items {
		if it.Kind() == kind && matches(it, fields) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListAll(_ context.Context, kind model.Kind) ([]model.Item, error) {
	f.calls = append(f.calls, "list")
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Item
	for _, it := range f.items {
		if it.Kind() == kind {
			out = append(out, it)
		}
	}
	return out, nil
}

func matches(it model.Item, fields map[string]any) bool {
	for k, want := range fields {
		var got any
		switch v := it.(type) {
		case *model.Gear:
			got = map[string]any{
				model.FieldMPN:         v.MPN,
				model.FieldBrand:       v.Brand,
				model.FieldProductName: v.ProductName,
				model.FieldMSRP:        v.MSRP,
				model.FieldSubCategory: v.SubCategory,
			}[k]
		case *model.Race:
			got = map[string]any{
				model.FieldRaceName: v.RaceName,
				model.FieldDistance: v.Distance,
			}[k]
		}
		if got != want {
			return false
		}
	}
	return true
}

func gear(id, brand, name string, sub model.SubCategory, msrp float64, mpn string) *model.Gear {
	g := model.GearDraft{Brand: brand, ProductName: name, SubCategory: sub, MSRP: msrp, MPN: mpn}.
		Build(id, "seed", time.Time{}).(*model.Gear)
	return g
}

func race(id, name string, d model.Distance, city, state string) *model.Race {
	return model.RaceDraft{RaceName: name, Distance: d, City: city, State: state}.
		Build(id, "seed", time.Time{}).(*model.Race)
}

func TestCheckExactGear(t *testing.T) {
	Convey("Given a catalog with stored gear", t, func() {
		ctx := context.Background()
		cat := &fakeCatalog{items: []model.Item{
			gear("g-1", "Hoka", "Clifton 9", model.SubCategoryRunningShoes, 145, "1127895"),
			gear("g-2", "Canyon", "Speedmax CF 8", model.SubCategoryBikes, 4299, ""),
		}}
		v := dedupe.NewValidator(cat)

		Convey("When the submitted MPN matches", func() {
			res, err := v.CheckExactGear(ctx, model.GearDraft{Brand: "Other", ProductName: "Renamed", MSRP: 1, MPN: " 1127895 "})

			Convey("Then the submission is blocked on the MPN", func() {
				So(err, ShouldBeNil)
				So(res.IsValid, ShouldBeFalse)
				So(res.Error, ShouldContainSubstring, "MPN/SKU")
				So(res.Duplicate.Common().ID, ShouldEqual, "g-1")
			})
		})

		Convey("When brand, name and price match without an MPN", func() {
			res, err := v.CheckExactGear(ctx, model.GearDraft{Brand: "Canyon", ProductName: "Speedmax CF 8", MSRP: 4299})

			Convey("Then the composite key blocks it", func() {
				So(err, ShouldBeNil)
				So(res.IsValid, ShouldBeFalse)
				So(res.Error, ShouldContainSubstring, "Brand + Product Name + Price")
				So(res.Duplicate.Common().ID, ShouldEqual, "g-2")
			})
		})

		Convey("When only the price differs", func() {
			res, err := v.CheckExactGear(ctx, model.GearDraft{Brand: "Canyon", ProductName: "Speedmax CF 8", MSRP: 3999})

			Convey("Then it is unique", func() {
				So(err, ShouldBeNil)
				So(res.IsValid, ShouldBeTrue)
				So(res.Duplicate, ShouldBeNil)
			})
		})

		Convey("When the MPN is blank", func() {
			_, _ = v.CheckExactGear(ctx, model.GearDraft{Brand: "Hoka", ProductName: "Bondi 8", MSRP: 165, MPN: "   "})

			Convey("Then only the composite lookup runs", func() {
				So(cat.calls, ShouldHaveLength, 1)
			})
		})

		Convey("When the catalog is unreachable", func() {
			cat.err = errors.New("connection refused")
			res, err := v.CheckExactGear(ctx, model.GearDraft{Brand: "Hoka", ProductName: "Clifton 9", MSRP: 145, MPN: "x"})

			Convey("Then it fails closed with unable-to-validate", func() {
				So(errors.Is(err, dedupe.ErrUnableToValidate), ShouldBeTrue)
				So(res.IsValid, ShouldBeFalse)
				So(res.Error, ShouldEqual, "Failed to validate item. Please try again.")
			})
		})
	})
}

func TestCheckExactRace(t *testing.T) {
	Convey("Given a catalog with the same race in two cities", t, func() {
		ctx := context.Background()
		cat := &fakeCatalog{items: []model.Item{
			race("r-1", "Ironman 70.3", model.DistanceHalf, "Oceanside", "CA"),
			race("r-2", "Ironman 70.3", model.DistanceHalf, "Boulder", "CO"),
		}}
		v := dedupe.NewValidator(cat)

		Convey("When name, distance and location match ignoring case", func() {
			res, err := v.CheckExactRace(ctx, model.RaceDraft{RaceName: "Ironman 70.3", Distance: model.DistanceHalf, City: "boulder", State: "co"})

			Convey("Then the matching location is reported", func() {
				So(err, ShouldBeNil)
				So(res.IsValid, ShouldBeFalse)
				So(res.Duplicate.Common().ID, ShouldEqual, "r-2")
			})
		})

		Convey("When the location is new", func() {
			res, err := v.CheckExactRace(ctx, model.RaceDraft{RaceName: "Ironman 70.3", Distance: model.DistanceHalf, City: "Austin", State: "TX"})
			So(err, ShouldBeNil)
			So(res.IsValid, ShouldBeTrue)
		})

		Convey("When the distance differs", func() {
			res, err := v.CheckExactRace(ctx, model.RaceDraft{RaceName: "Ironman 70.3", Distance: model.DistanceFull, City: "Oceanside", State: "CA"})
			So(err, ShouldBeNil)
			So(res.IsValid, ShouldBeTrue)
		})
	})
}

func TestCheckSimilar(t *testing.T) {
	Convey("Given a catalog with near-named items", t, func() {
		ctx := context.Background()
		cat := &fakeCatalog{items: []model.Item{
			gear("g-1", "Maurten", "Gel 100", model.SubCategoryNutrition, 3.6, ""),
			gear("g-2", "Maurten", "Gel 100 Caf", model.SubCategoryNutrition, 4, ""),
			gear("g-3", "Maurten", "Gel 100", model.SubCategoryBikes, 3.6, ""),
			race("r-1", "Austin Sprint Tri", model.DistanceSprint, "Austin", "TX"),
			race("r-2", "Austin Sprint Triathlon", model.DistanceSprint, "Dallas", "TX"),
		}}
		v := dedupe.NewValidator(cat)

		Convey("When checking gear", func() {
			res := v.CheckSimilarGear(ctx, model.GearDraft{Brand: "Maurten", ProductName: "Gel 160", SubCategory: model.SubCategoryNutrition})

			Convey("Then only the same sub-category is compared and nothing blocks", func() {
				So(res.IsValid, ShouldBeTrue)
				So(res.Similar, ShouldHaveLength, 1)
				So(res.Similar[0].Common().ID, ShouldEqual, "g-1")
			})
		})

		Convey("When checking a race", func() {
			res := v.CheckSimilarRace(ctx, model.RaceDraft{RaceName: "Austin Sprint Tri.", City: "AUSTIN", State: "tx"})

			Convey("Then only races in the same city are compared", func() {
				So(res.IsValid, ShouldBeTrue)
				So(res.Similar, ShouldHaveLength, 1)
				So(res.Similar[0].Common().ID, ShouldEqual, "r-1")
			})
		})

		Convey("When the catalog is unreachable", func() {
			cat.err = errors.New("timeout")

			Convey("Then the check fails open", func() {
				res := v.CheckSimilarRace(ctx, model.RaceDraft{RaceName: "Austin Sprint Tri", City: "Austin", State: "TX"})
				So(res.IsValid, ShouldBeTrue)
				So(res.Similar, ShouldBeEmpty)

				res = v.CheckSimilarGear(ctx, model.GearDraft{Brand: "Maurten", ProductName: "Gel 100"})
				So(res.IsValid, ShouldBeTrue)
				So(res.Similar, ShouldBeEmpty)
			})
		})

		Convey("When a stricter threshold is configured", func() {
			strict := dedupe.NewValidator(cat, dedupe.WithThreshold(100))
			res := strict.CheckSimilarGear(ctx, model.GearDraft{Brand: "Maurten", ProductName: "Gel 160", SubCategory: model.SubCategoryNutrition})
			So(res.Similar, ShouldBeEmpty)
		})
	})
}

func TestCheck(t *testing.T) {
	Convey("Given the submission flow", t, func() {
		ctx := context.Background()
		cat := &fakeCatalog{items: []model.Item{
			gear("g-1", "Hoka", "Clifton 9", model.SubCategoryRunningShoes, 145, "1127895"),
		}}
		v := dedupe.NewValidator(cat)

		Convey("When the draft is an exact duplicate", func() {
			res, err := v.Check(ctx, model.GearDraft{Brand: "Hoka", ProductName: "Clifton 9", MSRP: 145, MPN: "1127895"}, true)

			Convey("Then it is blocked even when confirmed", func() {
				So(err, ShouldBeNil)
				So(res.IsValid, ShouldBeFalse)
				So(cat.calls, ShouldHaveLength, 1)
			})
		})

		Convey("When the draft is similar and unconfirmed", func() {
			d := model.GearDraft{Brand: "Hoka", ProductName: "Clifton 9.", SubCategory: model.SubCategoryRunningShoes, MSRP: 150}
			res, err := v.Check(ctx, d, false)

			Convey("Then a warning is returned", func() {
				So(err, ShouldBeNil)
				So(res.IsValid, ShouldBeTrue)
				So(res.Similar, ShouldHaveLength, 1)
			})

			Convey("And resubmitting with confirmation skips the warning", func() {
				res, err := v.Check(ctx, d, true)
				So(err, ShouldBeNil)
				So(res.IsValid, ShouldBeTrue)
				So(res.Similar, ShouldBeEmpty)
			})
		})

		Convey("When the draft kind is unknown", func() {
			_, err := v.Check(ctx, nil, false)
			So(errors.Is(err, dedupe.ErrUnknownDraft), ShouldBeTrue)
		})
	})
}

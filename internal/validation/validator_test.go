package validation_test

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/validation"
)

type scoreRequest struct {
	Rating float64 `json:"rating" validate:"gte=0,lte=5"`
	Tier   string  `json:"tier" validate:"sensitivity"`
}

func TestStruct(t *testing.T) {
	Convey("Given a valid gear draft", t, func() {
		d := model.GearDraft{Brand: "Hoka", ProductName: "Clifton 9", SubCategory: model.SubCategoryRunningShoes, MSRP: 145}
		So(validation.Struct(d), ShouldBeNil)
	})

	Convey("Given a gear draft missing fields", t, func() {
		d := model.GearDraft{SubCategory: "skis", MSRP: -1}
		err := validation.Struct(d)

		Convey("Then every failure is reported under its json name", func() {
			var verr *validation.Error
			So(errors.As(err, &verr), ShouldBeTrue)

			fields := map[string]string{}
			for _, f := range verr.Fields {
				fields[f.Field] = f.Tag
			}
			So(fields["brand"], ShouldEqual, "required")
			So(fields["productName"], ShouldEqual, "required")
			So(fields["subCategory"], ShouldEqual, "oneof")
			So(fields["msrp"], ShouldEqual, "gte")
			So(err.Error(), ShouldContainSubstring, "brand is required")
		})
	})

	Convey("Given a race draft with a bad distance and URL", t, func() {
		d := model.RaceDraft{RaceName: "Waco", Distance: "ultra", City: "Waco", State: "TX", RegistrationURL: "not a url"}
		err := validation.Struct(d)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "distance must be one of: sprint olympic half full")
		So(err.Error(), ShouldContainSubstring, "registrationUrl must be a valid URL")
	})

	Convey("Given the sensitivity tag", t, func() {
		So(validation.Struct(scoreRequest{Rating: 4, Tier: "economy"}), ShouldBeNil)
		So(validation.Struct(scoreRequest{Rating: 4}), ShouldBeNil)

		err := validation.Struct(scoreRequest{Rating: 6, Tier: "luxury"})
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "rating must be less than or equal to 5")
		So(err.Error(), ShouldContainSubstring, "tier must be economy, mid-range or performance")
	})
}

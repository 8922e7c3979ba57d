// Package dedupe detects catalog submissions that duplicate stored items.
//
// Two checks run per submission. The exact check matches strong identity
// keys and blocks creation; a lookup failure is reported as
// ErrUnableToValidate. The similarity check compares names within the
// submission's category and only warns; a lookup failure is treated as
// "nothing similar".
package dedupe

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/internal/domain/similarity"
	"github.com/okian/endurank/pkg/logger"
	"github.com/okian/endurank/pkg/metrics"
)

// Catalog is the read side of the document store used for lookups.
type Catalog interface {
	// FindByField returns items of kind whose field equals value.
	FindByField(ctx context.Context, kind model.Kind, field string, value any) ([]model.Item, error)
	// FindByFields returns items of kind matching every field/value pair.
	FindByFields(ctx context.Context, kind model.Kind, fields map[string]any) ([]model.Item, error)
	// ListAll returns every item of kind.
	ListAll(ctx context.Context, kind model.Kind) ([]model.Item, error)
}

// Result is the outcome of one check.
type Result struct {
	IsValid   bool         `json:"isValid"`
	Error     string       `json:"error,omitempty"`
	Duplicate model.Item   `json:"duplicateItem,omitempty"`
	Similar   []model.Item `json:"similarItems,omitempty"`
}

// Validation outcomes, also used as metric labels.
const (
	OutcomeUnique    = "unique"
	OutcomeDuplicate = "duplicate"
	OutcomeSimilar   = "similar"
	OutcomeError     = "error"
)

const (
	msgDuplicateMPN       = "This item already exists (matching MPN/SKU). Please review this item instead."
	msgDuplicateComposite = "This item already exists (matching Brand + Product Name + Price). Please review this item instead."
	msgDuplicateRace      = "This race already exists (matching Name + Distance + Location). Please review this race instead."
	msgGearLookupFailed   = "Failed to validate item. Please try again."
	msgRaceLookupFailed   = "Failed to validate race. Please try again."
)

// Validator runs duplicate checks against a Catalog. Safe for concurrent use.
type Validator struct {
	catalog   Catalog
	threshold int
	log       logger.Logger
}

// NewValidator creates a validator reading from catalog.
func NewValidator(catalog Catalog, opts ...Option) *Validator {
	v := &Validator{
		catalog:   catalog,
		threshold: similarity.DefaultThreshold,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check runs the submission decision points for d: the exact check first,
// then, unless the submitter already confirmed a similarity warning, the
// similarity check. A blocking exact match short-circuits.
func (v *Validator) Check(ctx context.Context, d model.Draft, confirmed bool) (Result, error) {
	res, err := v.CheckExact(ctx, d)
	if err != nil || !res.IsValid {
		return res, err
	}
	if confirmed {
		return Result{IsValid: true}, nil
	}
	return v.CheckSimilar(ctx, d)
}

// CheckExact dispatches the exact-match check on the draft kind.
func (v *Validator) CheckExact(ctx context.Context, d model.Draft) (Result, error) {
	switch d := d.(type) {
	case model.GearDraft:
		return v.CheckExactGear(ctx, d)
	case model.RaceDraft:
		return v.CheckExactRace(ctx, d)
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownDraft, d)
	}
}

// CheckSimilar dispatches the similarity check on the draft kind.
func (v *Validator) CheckSimilar(ctx context.Context, d model.Draft) (Result, error) {
	switch d := d.(type) {
	case model.GearDraft:
		return v.CheckSimilarGear(ctx, d), nil
	case model.RaceDraft:
		return v.CheckSimilarRace(ctx, d), nil
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownDraft, d)
	}
}

// CheckExactGear looks for stored gear with the same MPN, or failing that
// the same brand, product name and price.
func (v *Validator) CheckExactGear(ctx context.Context, d model.GearDraft) (Result, error) {
	kind := string(model.KindGear)

	if mpn := strings.TrimSpace(d.MPN); mpn != "" {
		items, err := v.catalog.FindByField(ctx, model.KindGear, model.FieldMPN, mpn)
		if err != nil {
			return v.unableToValidate(ctx, kind, msgGearLookupFailed, err)
		}
		if len(items) > 0 {
			metrics.RecordValidation(kind, OutcomeDuplicate)
			return Result{IsValid: false, Error: msgDuplicateMPN, Duplicate: items[0]}, nil
		}
	}

	items, err := v.catalog.FindByFields(ctx, model.KindGear, map[string]any{
		model.FieldBrand:       strings.TrimSpace(d.Brand),
		model.FieldProductName: strings.TrimSpace(d.ProductName),
		model.FieldMSRP:        d.MSRP,
	})
	if err != nil {
		return v.unableToValidate(ctx, kind, msgGearLookupFailed, err)
	}
	if len(items) > 0 {
		metrics.RecordValidation(kind, OutcomeDuplicate)
		return Result{IsValid: false, Error: msgDuplicateComposite, Duplicate: items[0]}, nil
	}

	metrics.RecordValidation(kind, OutcomeUnique)
	return Result{IsValid: true}, nil
}

// CheckExactRace looks for a stored race with the same name and distance,
// then narrows in memory to the same city and state.
func (v *Validator) CheckExactRace(ctx context.Context, d model.RaceDraft) (Result, error) {
	kind := string(model.KindRace)

	items, err := v.catalog.FindByFields(ctx, model.KindRace, map[string]any{
		model.FieldRaceName: strings.TrimSpace(d.RaceName),
		model.FieldDistance: d.Distance,
	})
	if err != nil {
		return v.unableToValidate(ctx, kind, msgRaceLookupFailed, err)
	}

	for _, it := range items {
		if r, ok := it.(*model.Race); ok && sameLocation(r, d.City, d.State) {
			metrics.RecordValidation(kind, OutcomeDuplicate)
			return Result{IsValid: false, Error: msgDuplicateRace, Duplicate: r}, nil
		}
	}

	metrics.RecordValidation(kind, OutcomeUnique)
	return Result{IsValid: true}, nil
}

// CheckSimilarGear reports gear of the same brand and sub-category whose
// name is close to the submitted one. Never blocks.
func (v *Validator) CheckSimilarGear(ctx context.Context, d model.GearDraft) Result {
	items, err := v.catalog.FindByFields(ctx, model.KindGear, map[string]any{
		model.FieldBrand:       strings.TrimSpace(d.Brand),
		model.FieldSubCategory: d.SubCategory,
	})
	if err != nil {
		v.failOpen(ctx, model.KindGear, err)
		return Result{IsValid: true}
	}
	return v.similar(model.KindGear, d.ProductName, items)
}

// CheckSimilarRace reports races in the same city and state whose name is
// close to the submitted one. Never blocks.
func (v *Validator) CheckSimilarRace(ctx context.Context, d model.RaceDraft) Result {
	items, err := v.catalog.ListAll(ctx, model.KindRace)
	if err != nil {
		v.failOpen(ctx, model.KindRace, err)
		return Result{IsValid: true}
	}

	var local []model.Item
	for _, it := range items {
		if r, ok := it.(*model.Race); ok && sameLocation(r, d.City, d.State) {
			local = append(local, r)
		}
	}
	return v.similar(model.KindRace, d.RaceName, local)
}

func (v *Validator) similar(kind model.Kind, name string, candidates []model.Item) Result {
	found := similarity.FindSimilar(name, candidates, model.Item.Name, v.threshold)
	if len(found) == 0 {
		metrics.RecordValidation(string(kind), OutcomeUnique)
		return Result{IsValid: true}
	}
	metrics.RecordValidation(string(kind), OutcomeSimilar)
	return Result{IsValid: true, Similar: found}
}

func (v *Validator) unableToValidate(ctx context.Context, kind, msg string, err error) (Result, error) {
	metrics.RecordValidation(kind, OutcomeError)
	v.log.Error(ctx, "exact duplicate check failed", logger.String("kind", kind), logger.Error(err))
	return Result{IsValid: false, Error: msg}, fmt.Errorf("%w: %w", ErrUnableToValidate, err)
}

func (v *Validator) failOpen(ctx context.Context, kind model.Kind, err error) {
	metrics.RecordValidation(string(kind), OutcomeError)
	v.log.Warn(ctx, "similarity check skipped", logger.String("kind", string(kind)), logger.Error(err))
}

func sameLocation(r *model.Race, city, state string) bool {
	return strings.EqualFold(r.Location.City, strings.TrimSpace(city)) &&
		strings.EqualFold(r.Location.State, strings.TrimSpace(state))
}

package service

import (
	"screener/internal/screening/models"
	dErrors "screener/pkg/domain-errors"
	strutil "screener/pkg/platform/strings"
)

// MaxSymbols bounds one screening call.
const MaxSymbols = 500

const maxSymbolLength = 32

// screenPlan is a validated, normalised ScreenRequest.
type screenPlan struct {
	symbols     []string
	duplicates  []string
	filters     models.Filters
	lookThrough bool
	maxDepth    int
}

// normalizeRequest rejects malformed requests before any lookup happens.
// Symbols are trimmed, upper-cased and de-duplicated keeping first
// occurrence; collapsed repeats are kept in duplicates so the caller can be
// told. BDS categories are checked and de-duplicated.
func normalizeRequest(req models.ScreenRequest) (screenPlan, error) {
	symbols := strutil.NormalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return screenPlan{}, dErrors.New(dErrors.CodeValidation, "symbols must not be empty")
	}
	if len(symbols) > MaxSymbols {
		return screenPlan{}, dErrors.Newf(dErrors.CodeValidation, "at most %d symbols per request", MaxSymbols)
	}
	for _, sym := range symbols {
		if len(sym) > maxSymbolLength {
			return screenPlan{}, dErrors.Newf(dErrors.CodeValidation, "symbol %q exceeds %d characters", sym, maxSymbolLength)
		}
	}

	filters := req.Filters
	if filters.BDS.Enabled {
		categories, err := normalizeCategories(filters.BDS.Categories)
		if err != nil {
			return screenPlan{}, err
		}
		filters.BDS.Categories = categories
	} else {
		filters.BDS.Categories = nil
	}
	if !anyEnabled(filters) {
		return screenPlan{}, dErrors.New(dErrors.CodeValidation, "at least one policy must be enabled")
	}

	depth := req.Options.MaxDepth
	if depth == 0 {
		depth = models.DefaultDepth
	}
	if depth < models.MinDepth || depth > models.MaxDepth {
		return screenPlan{}, dErrors.Newf(dErrors.CodeValidation, "max_depth must be between %d and %d", models.MinDepth, models.MaxDepth)
	}

	return screenPlan{
		symbols:     symbols,
		duplicates:  strutil.DuplicateSymbols(req.Symbols),
		filters:     filters,
		lookThrough: req.Options.LookThrough,
		maxDepth:    depth,
	}, nil
}

func normalizeCategories(in []models.BDSCategory) ([]models.BDSCategory, error) {
	if len(in) == 0 {
		return nil, nil
	}
	raw := make([]string, len(in))
	for i, c := range in {
		raw[i] = string(c)
	}
	names := strutil.DedupeLower(raw)
	out := make([]models.BDSCategory, 0, len(names))
	for _, name := range names {
		c, err := models.ParseBDSCategory(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func anyEnabled(f models.Filters) bool {
	for _, p := range models.AllPolicies {
		if f.Enabled(p) {
			return true
		}
	}
	return false
}

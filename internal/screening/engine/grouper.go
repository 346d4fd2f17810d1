// Package engine holds the pure screening rules: grouping, scoring,
// confidence, verdict combination and basket look-through folding.
//
// Nothing here performs I/O or reads the clock; callers pass the immutable
// Config and the evaluation time explicitly. Every function is safe to call
// concurrently.
package engine

import "screener/internal/screening/models"

// Group is the evidence assigned to one category key.
type Group struct {
	Key      models.CategoryKey
	Evidence []models.Evidence
}

// Groups is an ordered partition of one policy's evidence.
type Groups []Group

// Evidence concatenates the evidence of every group in order.
func (g Groups) Evidence() []models.Evidence {
	var out []models.Evidence
	for _, group := range g {
		out = append(out, group.Evidence...)
	}
	return out
}

// GroupEvidence partitions the instrument's evidence for one policy.
//
// Evidence of other policies is left for their own grouping. BDS evidence
// without a recognised sub-category lands in the other bucket, so every item
// appears in exactly one group. When categories is non-empty only those BDS
// groups are returned; evidence outside them never reaches scoring.
// Groups come back in declaration order, including empty in-scope groups.
func GroupEvidence(policy models.Policy, evidence []models.Evidence, categories []models.BDSCategory) Groups {
	if !policy.HasCategories() {
		group := Group{Key: models.ImplicitCategory(policy)}
		for _, e := range evidence {
			if e.Policy == policy {
				group.Evidence = append(group.Evidence, e)
			}
		}
		return Groups{group}
	}

	buckets := make(map[models.BDSCategory][]models.Evidence, len(models.AllBDSCategories))
	for _, e := range evidence {
		if e.Policy != policy {
			continue
		}
		cat := models.BDSOther
		if e.SubCategory != nil && e.SubCategory.IsValid() {
			cat = *e.SubCategory
		}
		buckets[cat] = append(buckets[cat], e)
	}

	scope := inScope(categories)
	groups := make(Groups, 0, len(models.AllBDSCategories))
	for _, cat := range models.AllBDSCategories {
		if !scope(cat) {
			continue
		}
		groups = append(groups, Group{Key: models.CategoryKey(cat), Evidence: buckets[cat]})
	}
	return groups
}

func inScope(categories []models.BDSCategory) func(models.BDSCategory) bool {
	if len(categories) == 0 {
		return func(models.BDSCategory) bool { return true }
	}
	allowed := make(map[models.BDSCategory]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}
	return func(c models.BDSCategory) bool {
		_, ok := allowed[c]
		return ok
	}
}

package models

import (
	"strings"

	dErrors "screener/pkg/domain-errors"
)

// Policy is one of the independent screening dimensions.
type Policy string

const (
	PolicyBDS          Policy = "bds"
	PolicyDefense      Policy = "defense"
	PolicySurveillance Policy = "surveillance"
	PolicyShariah      Policy = "shariah"
)

// AllPolicies lists policies in reporting order. Reasons are concatenated in
// this order.
var AllPolicies = []Policy{PolicyBDS, PolicyDefense, PolicySurveillance, PolicyShariah}

// IsValid checks if the policy is one of the supported values.
func (p Policy) IsValid() bool {
	switch p {
	case PolicyBDS, PolicyDefense, PolicySurveillance, PolicyShariah:
		return true
	}
	return false
}

// HasCategories reports whether evidence under p is split into sub-categories.
func (p Policy) HasCategories() bool {
	return p == PolicyBDS
}

func (p Policy) String() string {
	return string(p)
}

// ParsePolicy parses a policy name case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown policy %q", s)
	}
	return p, nil
}

// BDSCategory is the closed set of boycott-exposure sub-categories.
type BDSCategory string

const (
	BDSEconomicExploitation  BDSCategory = "economic_exploitation"
	BDSOccupiedResources     BDSCategory = "exploitation_of_occupied_resources"
	BDSSettlementEnterprise  BDSCategory = "settlement_enterprise"
	BDSConstruction          BDSCategory = "construction_on_occupied_land"
	BDSServicesToSettlements BDSCategory = "services_to_settlements"
	BDSOther                 BDSCategory = "other_bds_activities"
)

// AllBDSCategories lists categories in reporting order.
var AllBDSCategories = []BDSCategory{
	BDSEconomicExploitation,
	BDSOccupiedResources,
	BDSSettlementEnterprise,
	BDSConstruction,
	BDSServicesToSettlements,
	BDSOther,
}

// IsValid checks if the category is one of the six fixed values.
func (c BDSCategory) IsValid() bool {
	switch c {
	case BDSEconomicExploitation, BDSOccupiedResources, BDSSettlementEnterprise,
		BDSConstruction, BDSServicesToSettlements, BDSOther:
		return true
	}
	return false
}

// ParseBDSCategory parses a category name case-insensitively.
func ParseBDSCategory(s string) (BDSCategory, error) {
	c := BDSCategory(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown bds category %q", s)
	}
	return c, nil
}

// CategoryKey names an evidence group. For BDS it is a BDSCategory; policies
// without sub-categories use the policy name as their single implicit key.
type CategoryKey string

// ImplicitCategory is the single group key for policies without sub-categories.
func ImplicitCategory(p Policy) CategoryKey {
	return CategoryKey(p)
}

// BDS returns the key as a BDS category and whether it is one.
func (k CategoryKey) BDS() (BDSCategory, bool) {
	c := BDSCategory(k)
	return c, c.IsValid()
}

// Package services – eligibility filter
//
// This file implements the per-category eligibility check applied to catalogue
// candidates before they are ranked and cached. Every category resolves to
// exactly one effective rule: its stored rule when present and active, or a
// synthesized default otherwise, so the filter never runs unconfigured.
//
// Check order is fixed and short-circuits on the first failing criterion:
// rating, then review count, then stock, then price bounds. A candidate with
// no rating is always rejected; a candidate with no price is never rejected
// on price grounds.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/amazon"
	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// Default rule values applied when a category has no active stored rule.
const (
	DefaultMinRating        = 4.0
	DefaultMinReviewCount   = 200
	DefaultMaxBSRPercentile = 10
)

// RuleRepo defines the repository contract for eligibility rules.
type RuleRepo interface {
	// GetRuleByCategory fetches the rule for a category, or ErrRecordNotFound.
	GetRuleByCategory(ctx context.Context, db *gorm.DB, categoryID string) (*domain.EligibilityRule, error)
}

// DefaultRule returns the synthesized rule used when a category has no
// active stored rule.
func DefaultRule(categoryID string) *domain.EligibilityRule {
	return &domain.EligibilityRule{
		CategoryID:       categoryID,
		MinRating:        DefaultMinRating,
		MinReviewCount:   DefaultMinReviewCount,
		MaxBSRPercentile: DefaultMaxBSRPercentile,
		InStockOnly:      true,
		UKMarketplace:    true,
		Active:           true,
	}
}

// ResolveRule returns the effective eligibility rule for categoryID: the
// stored rule when one exists and is active, the synthesized default
// otherwise. Database errors other than a missing row are propagated.
func ResolveRule(ctx context.Context, db *gorm.DB, r RuleRepo, categoryID string) (*domain.EligibilityRule, error) {
	rule, err := r.GetRuleByCategory(ctx, db, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultRule(categoryID), nil
		}
		return nil, err
	}
	if !rule.Active {
		return DefaultRule(categoryID), nil
	}
	return rule, nil
}

// IsEligible reports whether a candidate passes the rule. Criteria are
// checked in a fixed order and the first failure rejects:
//
//  1. rating: absent or below MinRating rejects
//  2. review count below MinReviewCount rejects
//  3. out of stock rejects when InStockOnly is set
//  4. price outside [MinPrice, MaxPrice] rejects; an absent price passes
//
// MaxBSRPercentile is carried on the rule for ranking diagnostics but is not
// enforced here: best-seller rank feeds the ranker, not the filter.
func IsEligible(c amazon.Candidate, rule *domain.EligibilityRule) bool {
	if c.Rating == nil || *c.Rating < rule.MinRating {
		return false
	}
	if c.ReviewCount < rule.MinReviewCount {
		return false
	}
	if rule.InStockOnly && !c.InStock {
		return false
	}
	if c.Price != nil {
		if rule.MinPrice != nil && *c.Price < *rule.MinPrice {
			return false
		}
		if rule.MaxPrice != nil && *c.Price > *rule.MaxPrice {
			return false
		}
	}
	return true
}

// FilterEligible returns the candidates passing the rule, preserving input
// order.
func FilterEligible(in []amazon.Candidate, rule *domain.EligibilityRule) []amazon.Candidate {
	out := make([]amazon.Candidate, 0, len(in))
	for _, c := range in {
		if IsEligible(c, rule) {
			out = append(out, c)
		}
	}
	return out
}

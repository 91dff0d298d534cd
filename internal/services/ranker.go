// Package services – candidate ranker
//
// This file orders eligible candidates before the top slice is cached.
// Ordering is deterministic: rating descending, then review count
// descending, then best-seller rank ascending with an absent rank sorting
// last. The sort is stable so candidates equal on all three keys keep their
// upstream order, which keeps repeated refreshes byte-identical when the
// source data has not moved.
package services

import (
	"sort"

	"github.com/Adeyeye93/fitvantage/internal/amazon"
)

// RankCandidates sorts candidates in place by rating desc, review count
// desc, BSR asc (absent rank last), stable on ties. Eligible candidates
// always carry a rating; a defensive nil still sorts last.
func RankCandidates(in []amazon.Candidate) {
	sort.SliceStable(in, func(i, j int) bool {
		ri, rj := ratingOf(in[i]), ratingOf(in[j])
		if ri != rj {
			return ri > rj
		}
		if in[i].ReviewCount != in[j].ReviewCount {
			return in[i].ReviewCount > in[j].ReviewCount
		}
		return bsrOf(in[i]) < bsrOf(in[j])
	})
}

// TopASINs ranks candidates and returns the ASINs of the best n.
func TopASINs(in []amazon.Candidate, n int) []string {
	RankCandidates(in)
	if n > len(in) {
		n = len(in)
	}
	out := make([]string, 0, n)
	for _, c := range in[:n] {
		out = append(out, c.ASIN)
	}
	return out
}

func ratingOf(c amazon.Candidate) float64 {
	if c.Rating == nil {
		return -1
	}
	return *c.Rating
}

func bsrOf(c amazon.Candidate) int {
	if c.BSRRank == nil {
		return int(^uint(0) >> 1) // missing rank sorts last
	}
	return *c.BSRRank
}

package services

import (
	"testing"

	"github.com/Adeyeye93/fitvantage/internal/amazon"
)

func TestRankCandidates_RatingThenReviewsThenBSR(t *testing.T) {
	in := []amazon.Candidate{
		{ASIN: "low-rating", Rating: f64(4.1), ReviewCount: 9999},
		{ASIN: "tie-300", Rating: f64(4.5), ReviewCount: 300},
		{ASIN: "tie-500", Rating: f64(4.5), ReviewCount: 500},
		{ASIN: "best", Rating: f64(4.9), ReviewCount: 10},
	}
	RankCandidates(in)

	want := []string{"best", "tie-500", "tie-300", "low-rating"}
	for i, c := range in {
		if c.ASIN != want[i] {
			t.Fatalf("position %d: want %s got %s (full: %+v)", i, want[i], c.ASIN, in)
		}
	}
}

func TestRankCandidates_BSRBreaksFullTies(t *testing.T) {
	in := []amazon.Candidate{
		{ASIN: "no-bsr", Rating: f64(4.5), ReviewCount: 300},
		{ASIN: "bsr-50", Rating: f64(4.5), ReviewCount: 300, BSRRank: iptr(50)},
		{ASIN: "bsr-10", Rating: f64(4.5), ReviewCount: 300, BSRRank: iptr(10)},
	}
	RankCandidates(in)

	want := []string{"bsr-10", "bsr-50", "no-bsr"}
	for i, c := range in {
		if c.ASIN != want[i] {
			t.Fatalf("position %d: want %s got %s", i, want[i], c.ASIN)
		}
	}
}

func TestRankCandidates_StableOnIdenticalKeys(t *testing.T) {
	in := []amazon.Candidate{
		{ASIN: "first", Rating: f64(4.5), ReviewCount: 300, BSRRank: iptr(10)},
		{ASIN: "second", Rating: f64(4.5), ReviewCount: 300, BSRRank: iptr(10)},
		{ASIN: "third", Rating: f64(4.5), ReviewCount: 300, BSRRank: iptr(10)},
	}
	RankCandidates(in)

	want := []string{"first", "second", "third"}
	for i, c := range in {
		if c.ASIN != want[i] {
			t.Fatalf("stability broken at %d: want %s got %s", i, want[i], c.ASIN)
		}
	}
}

func TestTopASINs_CapsAtN(t *testing.T) {
	in := []amazon.Candidate{
		{ASIN: "a", Rating: f64(4.1), ReviewCount: 1},
		{ASIN: "b", Rating: f64(4.9), ReviewCount: 1},
		{ASIN: "c", Rating: f64(4.5), ReviewCount: 1},
	}
	got := TopASINs(in, 2)
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("unexpected top slice: %v", got)
	}

	// n larger than input returns everything
	got = TopASINs(in, 10)
	if len(got) != 3 {
		t.Fatalf("expected all 3, got %v", got)
	}
}

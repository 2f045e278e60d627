package rating

import (
	"sort"

	"restoreview/internal/domain"
)

const (
	qualityWeight    = 0.7
	volumeWeight     = 0.3
	volumeSaturation = 10
)

type RankOptions struct {
	CategoryID *int64
	Limit      int
}

type Ranked struct {
	domain.Restaurant
	WeightedScore float64 `json:"weighted_score"`
}

// WeightedScore blends quality with review volume. Volume stops counting
// once a restaurant reaches ten reviews.
func WeightedScore(rating float64, reviewCount int) float64 {
	if reviewCount <= 0 {
		return 0
	}
	volume := float64(reviewCount) / volumeSaturation
	if volume > 1 {
		volume = 1
	}
	return rating*qualityWeight + volume*volumeWeight
}

// Rank orders approved restaurants by weighted score, then review count, then
// rating. Equal keys keep their input order. Limit <= 0 keeps everything.
func Rank(restaurants []domain.Restaurant, opts RankOptions) []Ranked {
	out := make([]Ranked, 0, len(restaurants))
	for _, r := range restaurants {
		if !r.Approved {
			continue
		}
		if opts.CategoryID != nil && (r.CategoryID == nil || *r.CategoryID != *opts.CategoryID) {
			continue
		}
		out = append(out, Ranked{Restaurant: r, WeightedScore: WeightedScore(r.Rating, r.ReviewCount)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.WeightedScore != b.WeightedScore {
			return a.WeightedScore > b.WeightedScore
		}
		if a.ReviewCount != b.ReviewCount {
			return a.ReviewCount > b.ReviewCount
		}
		return a.Rating > b.Rating
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// Package score provides pure scoring functions for cache entries:
// a priority score used by callers for prefetch and retention decisions,
// and a freshness value that decays with content age. Neither function
// holds state and neither is consulted by the cache engine's eviction
// policy, which is purely recency and TTL based.
package score

import "math"

// Reach levels order content by visibility scope, from private to commons.
const (
	ReachPrivate      = 0
	ReachInvited      = 1
	ReachLocal        = 2
	ReachNeighborhood = 3
	ReachMunicipal    = 4
	ReachBioregional  = 5
	ReachRegional     = 6
	ReachCommons      = 7
)

// Mastery levels order content by how well the user knows it.
// Higher mastery decays slower.
const (
	MasteryNotStarted = 0
	MasterySeen       = 1
	MasteryRemember   = 2
	MasteryUnderstand = 3
	MasteryApply      = 4
	MasteryAnalyze    = 5
	MasteryEvaluate   = 6
	MasteryCreate     = 7
)

// MaxPriority is the upper bound of the priority score range.
const MaxPriority = 200

// decayPerDay maps a mastery level to its freshness decay rate per day.
var decayPerDay = [8]float64{
	MasteryNotStarted: 0.0,
	MasterySeen:       0.05,
	MasteryRemember:   0.03,
	MasteryUnderstand: 0.02,
	MasteryApply:      0.015,
	MasteryAnalyze:    0.01,
	MasteryEvaluate:   0.008,
	MasteryCreate:     0.005,
}

const secondsPerDay = 86400.0

// Priority computes an advisory retention priority in [0, 200].
//
// The score combines visibility reach (0-84 points), geographic proximity
// to the custodian (-100 to +100), a bandwidth class bonus (1=low through
// 4=ultra), a steward tier bonus (1=caretaker through 4=pioneer), content
// affinity (0-10 points), and an age penalty supplied by the caller.
// Out-of-range inputs are clamped, never rejected. Unknown bandwidth and
// steward tiers contribute nothing.
func Priority(reachLevel int, proximityScore int, bandwidthClass int, stewardTier int, affinityMatch float64, agePenalty int) int {
	score := clampInt(reachLevel, 0, 7) * 12

	score += clampInt(proximityScore, -100, 100)

	switch bandwidthClass {
	case 4:
		score += 20
	case 3:
		score += 10
	case 2:
		score += 5
	case 1:
		score -= 5
	}

	switch stewardTier {
	case 4:
		score += 50
	case 3:
		score += 30
	case 2:
		score += 15
	case 1:
		score += 5
	}

	score += int(math.Floor(clampFloat(affinityMatch, 0, 1) * 10))

	score -= agePenalty

	return clampInt(score, 0, MaxPriority)
}

// Freshness computes a freshness value in [0, 1] for content of the given
// age. Level 0 content never decays and always returns 1.0. The mastery
// level is clamped into [0, 7].
func Freshness(masteryLevel int, ageSeconds float64) float64 {
	rate := decayPerDay[clampInt(masteryLevel, 0, 7)] / secondsPerDay
	return math.Max(0, 1-rate*ageSeconds)
}

// DecayRatePerSecond returns the per-second freshness decay rate for a
// mastery level, clamped into [0, 7].
func DecayRatePerSecond(masteryLevel int) float64 {
	return decayPerDay[clampInt(masteryLevel, 0, 7)] / secondsPerDay
}

// FreshnessStatus buckets a freshness value for display and refresh
// scheduling.
type FreshnessStatus string

const (
	// StatusFresh means the content needs no attention yet.
	StatusFresh FreshnessStatus = "fresh"
	// StatusStale means the content should be refreshed soon.
	StatusStale FreshnessStatus = "stale"
	// StatusCritical means the content has decayed past usefulness.
	StatusCritical FreshnessStatus = "critical"
)

// StatusFor buckets a freshness value: fresh at 0.7 and above, stale at
// 0.4 and above, critical below that.
func StatusFor(freshness float64) FreshnessStatus {
	switch {
	case freshness >= 0.7:
		return StatusFresh
	case freshness >= 0.4:
		return StatusStale
	default:
		return StatusCritical
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

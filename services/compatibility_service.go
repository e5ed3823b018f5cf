package services

import (
	"math"
	"math/rand"
	"strings"

	"lineup_server/models"
)

// CompatibilityService computes the weighted match percentage between two
// profiles. Scoring is deterministic except for a small jitter added on top;
// the jitter source is injectable so tests can pin it.
type CompatibilityService struct {
	Jitter func() int // returns 0..4
}

func NewCompatibilityService() *CompatibilityService {
	return &CompatibilityService{
		Jitter: func() int { return rand.Intn(5) },
	}
}

// interestWeights marks high-signal tags; anything absent weighs 1.0.
var interestWeights = map[string]float64{
	"family":           2.0,
	"marriage":         2.0,
	"kids":             1.8,
	"travel":           1.5,
	"fitness":          1.3,
	"cooking":          1.3,
	"music":            1.2,
	"reading":          1.2,
	"volunteering":     1.5,
	"spirituality":     1.4,
	"entrepreneurship": 1.3,
}

// lifestyleCategories groups lifestyle tags into the five fixed buckets used
// for the categorical overlap score.
var lifestyleCategories = map[string][]string{
	"family":   {"family-oriented", "wants kids", "has kids", "close to parents"},
	"casual":   {"casual dating", "nightlife", "social drinker", "spontaneous"},
	"romance":  {"romantic", "long-term", "affectionate", "old-fashioned"},
	"active":   {"gym", "running", "hiking", "sports", "yoga"},
	"creative": {"art", "writing", "photography", "cooking", "music"},
}

const (
	scoreBoost           = 1.4
	noInterestsDefault   = 65
	noLifestyleDefault   = 60
	compositeBaseline    = 65
	sharedInterestBonus  = 3 // shared interests needed for a bonus
	sharedLifestyleBonus = 2
)

// Score returns the full breakdown including production jitter.
func (cs *CompatibilityService) Score(user, candidate models.UserProfile) models.ScoreBreakdown {
	breakdown := cs.BaseScore(user, candidate)
	jittered := breakdown.MatchPercentage + cs.Jitter()
	breakdown.MatchPercentage = clampScore(jittered)
	return breakdown
}

// BaseScore returns the deterministic breakdown with no jitter applied.
func (cs *CompatibilityService) BaseScore(user, candidate models.UserProfile) models.ScoreBreakdown {
	ageScore := ageScore(user, candidate)
	interestScore := interestScore(user, candidate)
	lifestyleScore := lifestyleScore(user, candidate)
	locationScore := locationScore(user.Location, candidate.Location)

	composite := 0.30*interestScore +
		0.35*lifestyleScore +
		0.15*ageScore +
		0.10*locationScore +
		0.10*compositeBaseline

	composite += bonuses(user, candidate)

	return models.ScoreBreakdown{
		MatchPercentage: clampScore(int(math.Round(composite))),
		AgeScore:        int(math.Round(ageScore)),
		InterestScore:   int(math.Round(interestScore)),
		LifestyleScore:  int(math.Round(lifestyleScore)),
		LocationScore:   int(math.Round(locationScore)),
	}
}

// ageScore applies the gender-asymmetric age penalty: female users penalize
// younger candidates 5/year (floor 70), male users penalize candidates more
// than 5 years above their midpoint 4/year (floor 75).
func ageScore(user, candidate models.UserProfile) float64 {
	userMid := user.AgeMidpoint()
	candMid := candidate.AgeMidpoint()
	if userMid == 0 || candMid == 0 {
		return 100
	}

	if user.Gender == models.GenderFemale {
		if candMid < userMid {
			return math.Max(70, 100-5*(userMid-candMid))
		}
		return 100
	}

	threshold := userMid + 5
	if candMid > threshold {
		return math.Max(75, 100-4*(candMid-threshold))
	}
	return 100
}

func interestWeight(tag string) float64 {
	if w, ok := interestWeights[strings.ToLower(tag)]; ok {
		return w
	}
	return 1.0
}

// interestScore is a weighted overlap: shared weight over the user's own
// declared weight, boosted and capped.
func interestScore(user, candidate models.UserProfile) float64 {
	if len(user.Interests) == 0 {
		return noInterestsDefault
	}

	candidateSet := toSet(candidate.Interests)
	var userTotal, sharedTotal float64
	for _, tag := range user.Interests {
		w := interestWeight(tag)
		userTotal += w
		if candidateSet[normalizeTag(tag)] {
			sharedTotal += w
		}
	}
	if userTotal == 0 {
		return noInterestsDefault
	}

	raw := sharedTotal / userTotal * 100
	return math.Min(100, raw*scoreBoost)
}

// lifestyleScore blends categorical overlap (0.6) with direct tag overlap
// (0.4), boosted and capped.
func lifestyleScore(user, candidate models.UserProfile) float64 {
	if len(user.LifestyleTags) == 0 {
		return noLifestyleDefault
	}

	userCats := populatedCategories(user.LifestyleTags)
	candCats := populatedCategories(candidate.LifestyleTags)

	categorical := 0.0
	if len(userCats) > 0 {
		shared := 0
		for cat := range userCats {
			if candCats[cat] {
				shared++
			}
		}
		categorical = float64(shared) / float64(len(userCats))
	}

	candidateSet := toSet(candidate.LifestyleTags)
	directShared := 0
	for _, tag := range user.LifestyleTags {
		if candidateSet[normalizeTag(tag)] {
			directShared++
		}
	}
	direct := float64(directShared) / float64(len(user.LifestyleTags))

	raw := (0.6*categorical + 0.4*direct) * 100
	return math.Min(100, raw*scoreBoost)
}

// locationScore compares "City, Region" strings: exact city 100, same region
// 90, otherwise a flat 75 so unknown locations are not punished hard.
func locationScore(userLoc, candidateLoc string) float64 {
	userCity, userRegion := splitLocation(userLoc)
	candCity, candRegion := splitLocation(candidateLoc)

	if userCity != "" && userCity == candCity {
		return 100
	}
	if userRegion != "" && userRegion == candRegion {
		return 90
	}
	return 75
}

func bonuses(user, candidate models.UserProfile) float64 {
	var bonus float64

	candidateInterests := toSet(candidate.Interests)
	sharedInterests := 0
	for _, tag := range user.Interests {
		if candidateInterests[normalizeTag(tag)] {
			sharedInterests++
		}
	}
	if sharedInterests >= sharedInterestBonus {
		bonus += 5
	}

	candidateLifestyle := toSet(candidate.LifestyleTags)
	sharedLifestyle := 0
	for _, tag := range user.LifestyleTags {
		if candidateLifestyle[normalizeTag(tag)] {
			sharedLifestyle++
		}
	}
	if sharedLifestyle >= sharedLifestyleBonus {
		bonus += 5
	}

	userCats := populatedCategories(user.LifestyleTags)
	if len(userCats) > 1 {
		candCats := populatedCategories(candidate.LifestyleTags)
		full := true
		for cat := range userCats {
			if !candCats[cat] {
				full = false
				break
			}
		}
		if full {
			bonus += 5
		}
	}

	return bonus
}

func populatedCategories(tags []string) map[string]bool {
	cats := map[string]bool{}
	for _, tag := range tags {
		norm := normalizeTag(tag)
		for cat, members := range lifestyleCategories {
			for _, member := range members {
				if norm == member {
					cats[cat] = true
				}
			}
		}
	}
	return cats
}

func splitLocation(loc string) (city, region string) {
	parts := strings.Split(loc, ",")
	if len(parts) > 0 {
		city = strings.ToLower(strings.TrimSpace(parts[0]))
	}
	if len(parts) > 1 {
		region = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	return city, region
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func toSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		set[normalizeTag(tag)] = true
	}
	return set
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

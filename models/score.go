package models

// ScoreBreakdown is the scorer output for one candidate.
type ScoreBreakdown struct {
	MatchPercentage int `json:"matchPercentage"`
	AgeScore        int `json:"ageScore"`
	InterestScore   int `json:"interestScore"`
	LifestyleScore  int `json:"lifestyleScore"`
	LocationScore   int `json:"locationScore"`
}

// ScoredCandidate pairs a candidate profile with its score for the results
// screen.
type ScoredCandidate struct {
	Profile UserProfile    `json:"profile"`
	Score   ScoreBreakdown `json:"score"`
}

package models

// UserProfile defines the structure for user profiles
type UserProfile struct {
	UserID          string   `dynamodbav:"userId" json:"userId"`                                       // ✅ Partition Key
	DisplayName     string   `dynamodbav:"displayName,omitempty" json:"displayName,omitempty"`         // Name shown to matches
	PhotoURL        string   `dynamodbav:"photoURL,omitempty" json:"photoURL,omitempty"`               // Primary profile photo
	Gender          string   `dynamodbav:"gender,omitempty" json:"gender,omitempty"`                   // "male" or "female"
	Age             int      `dynamodbav:"age,omitempty" json:"age,omitempty"`                         // Calculated age
	AgeMin          int      `dynamodbav:"ageMin,omitempty" json:"ageMin,omitempty"`                   // Preferred partner age range
	AgeMax          int      `dynamodbav:"ageMax,omitempty" json:"ageMax,omitempty"`                   //
	Interests       []string `dynamodbav:"interests,omitempty" json:"interests,omitempty"`             // User's interests
	LifestyleTags   []string `dynamodbav:"lifestyleTags,omitempty" json:"lifestyleTags,omitempty"`     // Lifestyle descriptors
	Location        string   `dynamodbav:"location,omitempty" json:"location,omitempty"`               // "City, Region" free text
	ProfileComplete bool     `dynamodbav:"profileComplete,omitempty" json:"profileComplete,omitempty"` // Only complete profiles enter matching
}

// AgeMidpoint returns the midpoint of the user's preferred age range, falling
// back to the user's own age when no range was declared.
func (p UserProfile) AgeMidpoint() float64 {
	if p.AgeMin > 0 && p.AgeMax >= p.AgeMin {
		return float64(p.AgeMin+p.AgeMax) / 2
	}
	return float64(p.Age)
}

// UserProfilesTable is the DynamoDB table name for user profiles
const UserProfilesTable = "UserProfiles"

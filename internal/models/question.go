package models

// Difficulty levels a question can carry.
const (
	DifficultyEasy     = "Easy"
	DifficultyMedium   = "Medium"
	DifficultyHard     = "Hard"
	DifficultyAdvanced = "Advanced"
)

type Question struct {
	ID         string   `bson:"_id,omitempty" json:"_id"`
	Question   string   `bson:"question" json:"question"`
	Options    []string `bson:"options" json:"options"`
	Answer     string   `bson:"answer" json:"answer"`
	Subject    string   `bson:"subject" json:"subject"`
	Branch     string   `bson:"branch" json:"branch"`
	Difficulty string   `bson:"difficulty" json:"difficulty"`
}

// FallbackDifficulties returns the difficulties to try, in order, when the
// requested one has no matching questions. The last resort (dropping the
// difficulty filter entirely) is handled by the caller, not listed here.
func FallbackDifficulties(difficulty string) []string {
	switch difficulty {
	case DifficultyAdvanced:
		return []string{DifficultyHard, DifficultyMedium, DifficultyEasy}
	case DifficultyHard:
		return []string{DifficultyMedium, DifficultyEasy}
	case DifficultyMedium:
		return []string{DifficultyEasy}
	default:
		return nil
	}
}

// ValidDifficulty reports whether d is one of the four known levels.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyAdvanced:
		return true
	}
	return false
}

package models

import "time"

// AnswerRecord is a denormalized copy of one answered question inside a
// finalized result. The prompt and correct answer are copied, not referenced,
// so the record survives question edits.
type AnswerRecord struct {
	Question       string `bson:"question" json:"question"`
	SelectedOption string `bson:"selectedOption" json:"selectedOption"`
	CorrectAnswer  string `bson:"correctAnswer" json:"correctAnswer"`
	IsCorrect      bool   `bson:"isCorrect" json:"isCorrect"`
}

// Result is one finalized quiz attempt. Answers holds only the questions that
// were actually answered; Total still reflects the full session length.
type Result struct {
	ID        string         `bson:"_id,omitempty" json:"_id"`
	Username  string         `bson:"username" json:"username"`
	Branch    string         `bson:"branch" json:"branch"`
	Subject   string         `bson:"subject" json:"subject"`
	Answers   []AnswerRecord `bson:"answers" json:"answers"`
	Score     int            `bson:"score" json:"score"`
	Total     int            `bson:"total" json:"total"`
	TimeTaken int            `bson:"timeTaken" json:"timeTaken"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}

// LeaderboardEntry is one row of the aggregated best-score-per-user view.
type LeaderboardEntry struct {
	Username  string `bson:"username" json:"username"`
	Branch    string `bson:"branch" json:"branch"`
	Subject   string `bson:"subject" json:"subject"`
	MaxScore  int    `bson:"maxScore" json:"maxScore"`
	TimeTaken int    `bson:"timeTaken" json:"timeTaken"`
}

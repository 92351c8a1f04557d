package repository

import (
	"context"
	"fmt"
	"regexp"

	"quizmaster/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNoQuestions is returned when a subject has no questions at any
// difficulty. Fewer questions than requested is not an error.
type ErrNoQuestions struct {
	Subject string
}

func (e *ErrNoQuestions) Error() string {
	return fmt.Sprintf("no questions found for subject: %s", e.Subject)
}

type QuestionRepository struct {
	Col *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) *QuestionRepository {
	return &QuestionRepository{Col: db.Collection("questions")}
}

// subjectFilter matches the subject case-insensitively. Quoted so a subject
// like "C++" is a literal, not a broken pattern.
func subjectFilter(subject string) bson.M {
	return bson.M{"subject": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(subject) + "$", Options: "i"}}
}

// FindRandom samples up to count questions for a subject, filtered by
// difficulty with a fixed fallback walk (Advanced→Hard→Medium→Easy, then no
// filter) when the exact difficulty has no matches.
func (r *QuestionRepository) FindRandom(ctx context.Context, subject, difficulty string, count int) ([]models.Question, error) {
	match := subjectFilter(subject)
	if difficulty != "" {
		match["difficulty"] = difficulty
	}

	total, err := r.Col.CountDocuments(ctx, match)
	if err != nil {
		return nil, err
	}

	if total == 0 && difficulty != "" {
		for _, fallback := range models.FallbackDifficulties(difficulty) {
			match["difficulty"] = fallback
			total, err = r.Col.CountDocuments(ctx, match)
			if err != nil {
				return nil, err
			}
			if total > 0 {
				break
			}
		}
		if total == 0 {
			// Last resort: the subject with no difficulty filter at all.
			match = subjectFilter(subject)
			total, err = r.Col.CountDocuments(ctx, match)
			if err != nil {
				return nil, err
			}
		}
	}

	if total == 0 {
		return nil, &ErrNoQuestions{Subject: subject}
	}

	size := int64(count)
	if total < size {
		size = total
	}

	cur, err := r.Col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sample", Value: bson.M{"size": size}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var questions []models.Question
	if err := cur.All(ctx, &questions); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, &ErrNoQuestions{Subject: subject}
	}
	return questions, nil
}

// FindByBranchSubject returns all questions matching a branch and subject,
// both matched case-insensitively.
func (r *QuestionRepository) FindByBranchSubject(ctx context.Context, branch, subject string) ([]models.Question, error) {
	filter := bson.M{
		"branch":  primitive.Regex{Pattern: regexp.QuoteMeta(branch), Options: "i"},
		"subject": primitive.Regex{Pattern: regexp.QuoteMeta(subject), Options: "i"},
	}
	cur, err := r.Col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var questions []models.Question
	if err := cur.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *QuestionRepository) InsertMany(ctx context.Context, questions []models.Question) (int, error) {
	docs := make([]interface{}, len(questions))
	for i := range questions {
		docs[i] = questions[i]
	}
	res, err := r.Col.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return len(res.InsertedIDs), nil
}

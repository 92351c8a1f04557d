package service

import (
	"context"
	"fmt"

	"quizmaster/internal/models"
	"quizmaster/internal/repository"
)

type QuestionService struct {
	Repo *repository.QuestionRepository
}

func NewQuestionService(repo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{Repo: repo}
}

// FetchQuestions returns up to count random questions for a subject, walking
// the difficulty fallback hierarchy inside the repository. Satisfies
// session.QuestionSource.
func (s *QuestionService) FetchQuestions(ctx context.Context, subject, difficulty string, count int) ([]models.Question, error) {
	if subject == "" || count < 1 {
		return nil, fmt.Errorf("subject and a positive count are required")
	}
	return s.Repo.FindRandom(ctx, subject, difficulty, count)
}

func (s *QuestionService) FetchByBranchSubject(ctx context.Context, branch, subject string, count int) ([]models.Question, error) {
	questions, err := s.Repo.FindByBranchSubject(ctx, branch, subject)
	if err != nil {
		return nil, err
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

func (s *QuestionService) BulkInsert(ctx context.Context, questions []models.Question) (int, error) {
	for i := range questions {
		if questions[i].Difficulty == "" {
			questions[i].Difficulty = models.DifficultyMedium
		}
		if !models.ValidDifficulty(questions[i].Difficulty) {
			return 0, fmt.Errorf("invalid difficulty %q at index %d", questions[i].Difficulty, i)
		}
	}
	return s.Repo.InsertMany(ctx, questions)
}

package service

import (
	"context"
	"errors"

	"quizmaster/internal/models"
	"quizmaster/internal/repository"
)

type ResultService struct {
	Repo *repository.ResultRepository
}

func NewResultService(repo *repository.ResultRepository) *ResultService {
	return &ResultService{Repo: repo}
}

func (s *ResultService) Submit(ctx context.Context, result *models.Result) error {
	if result.Username == "" || result.Branch == "" || result.Subject == "" || result.Answers == nil {
		return errors.New("username, branch, subject and answers are required")
	}
	return s.Repo.Create(ctx, result)
}

func (s *ResultService) GetByID(ctx context.Context, id string) (*models.Result, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *ResultService) GetByUser(ctx context.Context, username string) ([]models.Result, error) {
	return s.Repo.FindByUser(ctx, username)
}

func (s *ResultService) DeleteByUser(ctx context.Context, username string) (int64, error) {
	return s.Repo.DeleteByUser(ctx, username)
}

func (s *ResultService) Leaderboard(ctx context.Context, branch, subject string, byTime bool) ([]models.LeaderboardEntry, error) {
	return s.Repo.Leaderboard(ctx, branch, subject, byTime)
}

package inapp

import (
	"context"

	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo *Repository
	log  *logger.Logger
}

func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Send stores an in-app notification for a user. Failures are logged but not
// fatal to the caller's operation; a lost reminder never blocks lead work.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, title, body string) {
	if _, err := s.repo.Create(ctx, CreateParams{UserID: userID, Title: title, Body: body}); err != nil {
		s.log.Warn("failed to store notification", "userId", userID, "error", err)
	}
}

type Page struct {
	Items       []Notification `json:"items"`
	Total       int            `json:"total"`
	UnreadCount int            `json:"unreadCount"`
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) (Page, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.repo.List(ctx, userID, limit, offset)
	if err != nil {
		return Page{}, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, UnreadCount: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

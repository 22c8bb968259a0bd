// Package storage persists knowledge documents, handoff tickets and feedback ratings.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the persistence operations used by the advisor service.
type Storage interface {
	// Knowledge documents
	UpsertDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocuments(ctx context.Context, ids []string) (map[string]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, sourceType models.SourceType, offset, limit int) ([]*models.Document, error)
	DocumentIDsByOrigin(ctx context.Context, origin string) ([]string, error)
	CountDocuments(ctx context.Context) (map[models.SourceType]int64, error)

	// Handoff tickets
	CreateHandoff(ctx context.Context, ticket *models.HandoffTicket) error
	GetHandoff(ctx context.Context, id string) (*models.HandoffTicket, error)
	ListHandoffs(ctx context.Context, status models.HandoffStatus, limit int) ([]*models.HandoffTicket, error)
	ResolveHandoff(ctx context.Context, id string, at time.Time) error

	// Feedback
	AddFeedback(ctx context.Context, fb *models.Feedback) error
	CountLowRatings(ctx context.Context, sessionID string, maxRating int) (int, error)

	Close() error
}

package mcp

import (
	"context"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools.
type DataSource interface {
	ListTemplates(ctx context.Context, userID int) ([]models.Template, error)
	GetTemplate(ctx context.Context, templateID uuid.UUID, userID int) (*models.Template, error)
	QuerySessions(ctx context.Context, start, end time.Time, userID int) ([]storage.SessionSummaryRow, error)
	GetSession(ctx context.Context, sessionID uuid.UUID, userID int) (*models.SessionRecord, error)
	RecentExerciseHistory(ctx context.Context, userID int, exercise string, limit int) ([]models.PastExercise, error)
	GetVolumeSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.VolumePeriod, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)

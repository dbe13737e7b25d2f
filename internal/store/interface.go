package store

import (
	"context"
	"time"

	"gav/internal/models"
)

// AssetStore is the asset persistence surface consumed by the server.
type AssetStore interface {
	CreateAsset(ctx context.Context, asset *models.Asset) error
	CreateAssetWithBlob(ctx context.Context, asset *models.Asset, blob *models.Blob) error
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	ListAssets(ctx context.Context, filter AssetFilter) ([]models.Asset, error)
	CountAssets(ctx context.Context, filter AssetFilter) (int, error)
	AssetExists(ctx context.Context, id string) (bool, error)
	GetBlob(ctx context.Context, id string) (*models.Blob, error)
	DeleteBlob(ctx context.Context, id string) error
	ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error)
}

// ScoreStore is the score persistence surface consumed by the server.
type ScoreStore interface {
	CreateScore(ctx context.Context, score *models.Score) error
	GetScore(ctx context.Context, id string) (*models.Score, error)
	ListScores(ctx context.Context, filter ScoreFilter) ([]models.Score, error)
	CountScores(ctx context.Context, filter ScoreFilter) (int, error)
	ScoreExists(ctx context.Context, id string) (bool, error)
}

// AuditStore is the audit persistence surface consumed by the auditor.
type AuditStore interface {
	InsertAuditEvent(ctx context.Context, event *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, limit int) ([]models.AuditEvent, error)
	PruneAuditEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

// Interface is the full persistence surface of the service.
type Interface interface {
	AssetStore
	ScoreStore
	AuditStore
	Info(ctx context.Context) (StoreInfo, error)
	Status() (MigrationStatus, error)
	Close() error
}

var _ Interface = (*Store)(nil)

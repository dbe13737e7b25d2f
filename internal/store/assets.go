package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gav/internal/models"
	"gav/internal/records"
)

const assetColumns = "id, kind, filename, content_type, upload_date, size_bytes, storage_tier, COALESCE(content, ''), COALESCE(blob_id, ''), COALESCE(description, '')"
const assetListColumns = "id, kind, filename, content_type, upload_date, size_bytes, storage_tier, '', COALESCE(blob_id, ''), COALESCE(description, '')"
const blobColumns = "id, sha256, size_bytes, storage_backend, blob_key, created_at"

// AssetFilter narrows asset listings.
type AssetFilter struct {
	Kind  string
	Tag   string
	Limit int
	Skip  int
}

// CreateAsset inserts one asset row and its tags in a single transaction.
func (s *Store) CreateAsset(ctx context.Context, asset *models.Asset) (err error) {
	if asset == nil {
		return fmt.Errorf("asset is required")
	}
	if err := prepareAsset(ctx, s, asset); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertAssetRowTx(ctx, tx, asset); err != nil {
		return err
	}
	if err = insertAssetTagsTx(ctx, tx, asset.ID, asset.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateAssetWithBlob inserts the blob row (reusing an existing row with
// the same digest) and the asset row referencing it, in one transaction.
func (s *Store) CreateAssetWithBlob(ctx context.Context, asset *models.Asset, blob *models.Blob) (err error) {
	if asset == nil {
		return fmt.Errorf("asset is required")
	}
	if blob == nil {
		return fmt.Errorf("blob is required")
	}
	if err := prepareAsset(ctx, s, asset); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	blobID, err := upsertBlobTx(ctx, tx, blob)
	if err != nil {
		return err
	}
	asset.BlobID = blobID
	asset.StorageTier = string(models.StorageTierExternal)
	asset.Content = ""

	if err = insertAssetRowTx(ctx, tx, asset); err != nil {
		return err
	}
	if err = insertAssetTagsTx(ctx, tx, asset.ID, asset.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAsset returns one asset with tags, or nil when missing.
func (s *Store) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE id = ?", id)
	asset, err := scanAsset(row)
	if err != nil || asset == nil {
		return asset, err
	}

	tags, err := s.listAssetTags(ctx, id)
	if err != nil {
		return nil, err
	}
	asset.Tags = tags
	return asset, nil
}

// ListAssets lists assets matching the filter, content excluded, newest
// upload first.
func (s *Store) ListAssets(ctx context.Context, filter AssetFilter) ([]models.Asset, error) {
	query, args := buildAssetListQuery(filter, false)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			continue
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range assets {
		tags, err := s.listAssetTags(ctx, assets[i].ID)
		if err != nil {
			return nil, err
		}
		assets[i].Tags = tags
	}
	return assets, nil
}

// CountAssets returns the total number of assets matching the filter,
// ignoring pagination.
func (s *Store) CountAssets(ctx context.Context, filter AssetFilter) (int, error) {
	query, args := buildAssetListQuery(filter, true)
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// AssetExists checks whether an asset exists by id.
func (s *Store) AssetExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM assets WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBlob returns one blob row, or nil when missing.
func (s *Store) GetBlob(ctx context.Context, id string) (*models.Blob, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+blobColumns+" FROM blobs WHERE id = ?", id)
	return scanBlob(row)
}

// DeleteBlob deletes one blob row.
func (s *Store) DeleteBlob(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE id = ?", id)
	return err
}

// ListUnreferencedBlobs lists blob rows no asset points at, oldest first.
// A limit of 0 lists all of them.
func (s *Store) ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error) {
	query := "SELECT " + blobColumns + " FROM blobs WHERE id NOT IN (SELECT blob_id FROM assets WHERE blob_id IS NOT NULL) ORDER BY created_at"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blobs := []models.Blob{}
	for rows.Next() {
		blob, err := scanBlob(rows)
		if err != nil {
			return nil, err
		}
		if blob == nil {
			continue
		}
		blobs = append(blobs, *blob)
	}
	return blobs, rows.Err()
}

func prepareAsset(ctx context.Context, s *Store, asset *models.Asset) error {
	if asset.ID == "" {
		id, err := records.GenerateID(func(candidate records.ID) (bool, error) {
			return s.AssetExists(ctx, candidate.String())
		})
		if err != nil {
			return err
		}
		asset.ID = id.String()
	}
	if asset.UploadDate.IsZero() {
		asset.UploadDate = time.Now().UTC()
	}
	return nil
}

func insertAssetRowTx(ctx context.Context, tx *sql.Tx, asset *models.Asset) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO assets (id, kind, filename, content_type, upload_date, size_bytes, storage_tier, content, blob_id, description)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID,
		asset.Kind,
		asset.Filename,
		asset.ContentType,
		dbFormatTime(asset.UploadDate),
		asset.SizeBytes,
		asset.StorageTier,
		nullIfEmpty(asset.Content),
		nullIfEmpty(asset.BlobID),
		nullIfEmpty(asset.Description),
	)
	return err
}

func insertAssetTagsTx(ctx context.Context, tx *sql.Tx, assetID string, tags []string) error {
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO asset_tags (asset_id, tag) VALUES (?, ?)", assetID, tag); err != nil {
			return err
		}
	}
	return nil
}

func upsertBlobTx(ctx context.Context, tx *sql.Tx, blob *models.Blob) (string, error) {
	var existingID string
	err := tx.QueryRowContext(ctx, "SELECT id FROM blobs WHERE sha256 = ?", blob.SHA256).Scan(&existingID)
	if err == nil {
		blob.ID = existingID
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	if blob.ID == "" {
		id, err := records.NewID()
		if err != nil {
			return "", err
		}
		blob.ID = id.String()
	}
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO blobs (id, sha256, size_bytes, storage_backend, blob_key, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		blob.ID, blob.SHA256, blob.SizeBytes, blob.StorageBackend, blob.BlobKey, dbFormatTime(blob.CreatedAt),
	)
	if err != nil {
		return "", err
	}
	return blob.ID, nil
}

func (s *Store) listAssetTags(ctx context.Context, assetID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tag FROM asset_tags WHERE asset_id = ? ORDER BY tag", assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	var asset models.Asset
	var uploadDate string
	err := row.Scan(
		&asset.ID,
		&asset.Kind,
		&asset.Filename,
		&asset.ContentType,
		&uploadDate,
		&asset.SizeBytes,
		&asset.StorageTier,
		&asset.Content,
		&asset.BlobID,
		&asset.Description,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	asset.UploadDate, err = dbParseTime(uploadDate)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func scanBlob(row rowScanner) (*models.Blob, error) {
	var blob models.Blob
	var createdAt string
	err := row.Scan(&blob.ID, &blob.SHA256, &blob.SizeBytes, &blob.StorageBackend, &blob.BlobKey, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	blob.CreatedAt, err = dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &blob, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

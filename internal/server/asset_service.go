package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"gav/internal/blobstore"
	"gav/internal/content"
	"gav/internal/models"
	"gav/internal/records"
	"gav/internal/sanitize"
	"gav/internal/store"
)

const (
	blobStorageBackendLocalCAS = "local_cas"
	fallbackAssetContentType   = "application/octet-stream"
	defaultBlobGCBatchSize     = 500
)

// AssetService orchestrates sanitization, content admission and storage
// for asset uploads and retrieval.
type AssetService struct {
	store   store.AssetStore
	blobs   blobstore.BlobStore // nil disables the external tier
	policy  content.Policy
	metrics *Metrics
}

// NewAssetService constructs an AssetService.
func NewAssetService(assetStore store.AssetStore, blobs blobstore.BlobStore, policy content.Policy, metrics *Metrics) *AssetService {
	return &AssetService{store: assetStore, blobs: blobs, policy: policy, metrics: metrics}
}

// UploadAssetInput describes one received upload. Free-text fields are
// raw client input; the service sanitizes them before persistence.
type UploadAssetInput struct {
	Kind        models.AssetKind
	Filename    string
	ContentType string
	Tags        string // comma-separated
	Description string
	Content     []byte
}

// AssetContent describes a content stream for download.
type AssetContent struct {
	Reader      io.ReadCloser
	SizeBytes   int64
	ContentType string
	Filename    string
}

// Upload admits, sanitizes and persists one asset. Payloads above the
// ceiling fail with a 413; external-band payloads fail the same way when
// the blob tier is disabled. Nothing is persisted on rejection.
func (s *AssetService) Upload(ctx context.Context, in UploadAssetInput) (models.Asset, error) {
	var zero models.Asset
	if s == nil || s.store == nil {
		return zero, internalError(fmt.Errorf("asset service is not configured"))
	}

	kind, err := models.ParseAssetKind(string(in.Kind))
	if err != nil {
		return zero, badRequestCode(err, ErrCodeInvalidKind)
	}
	in.Kind = kind

	size := int64(len(in.Content))
	decision, err := s.policy.Admit(size)
	if err != nil {
		if errors.Is(err, content.ErrPayloadTooLarge) {
			s.metrics.ObserveAdmission("rejected")
			return zero, payloadTooLarge(fmt.Errorf("file too large: maximum size is %s", humanize.IBytes(uint64(s.policy.MaxUploadBytes))))
		}
		return zero, badRequest(err)
	}
	s.metrics.ObserveAdmission(string(decision))

	asset := models.Asset{
		Kind:        string(in.Kind),
		Filename:    sanitize.CleanString(strings.TrimSpace(in.Filename)),
		ContentType: strings.TrimSpace(in.ContentType),
		SizeBytes:   size,
		Tags:        cleanTags(in.Tags),
		Description: sanitize.CleanString(strings.TrimSpace(in.Description)),
	}
	if asset.ContentType == "" {
		asset.ContentType = in.Kind.DefaultContentType()
	}
	if len(asset.Tags) == 0 {
		asset.Tags = []string{string(in.Kind)}
	}
	if asset.Description == "" {
		asset.Description = in.Kind.DefaultDescription(asset.Filename)
	}

	switch decision {
	case content.DecisionInlineBase64:
		asset.StorageTier = string(models.StorageTierInline)
		asset.Content = base64.StdEncoding.EncodeToString(in.Content)
		if err := s.store.CreateAsset(ctx, &asset); err != nil {
			return zero, storeFailure(err)
		}

	case content.DecisionExternalStorage:
		if s.blobs == nil {
			return zero, unsupportedTier(fmt.Errorf("%w: files of %s require the external storage tier",
				content.ErrExternalUnavailable, humanize.IBytes(uint64(size))))
		}
		put, err := s.blobs.Put(ctx, bytes.NewReader(in.Content))
		if err != nil {
			return zero, internalError(fmt.Errorf("store blob: %w", err))
		}
		blob := models.Blob{
			SHA256:         put.SHA256,
			SizeBytes:      put.SizeBytes,
			StorageBackend: blobStorageBackendLocalCAS,
			BlobKey:        put.BlobKey,
		}
		if err := s.store.CreateAssetWithBlob(ctx, &asset, &blob); err != nil {
			return zero, storeFailure(err)
		}

	default:
		return zero, internalError(fmt.Errorf("unknown admission decision %q", decision))
	}

	s.metrics.ObserveUpload(asset.Kind, asset.StorageTier, size)
	return asset, nil
}

// Get returns one asset by raw id. Inline content is stripped unless
// includeContent is set; external-tier assets never embed content here.
func (s *AssetService) Get(ctx context.Context, kind models.AssetKind, rawID string, includeContent bool) (models.Asset, error) {
	var zero models.Asset
	id, err := records.ParseID(rawID)
	if err != nil {
		return zero, badRequestCode(err, ErrCodeInvalidID)
	}

	asset, err := s.store.GetAsset(ctx, id.String())
	if err != nil {
		return zero, storeFailure(err)
	}
	if asset == nil || asset.Kind != string(kind) {
		return zero, notFoundCode(fmt.Errorf("%s not found", kind), ErrCodeAssetNotFound)
	}

	if !includeContent {
		asset.Content = ""
	}
	return *asset, nil
}

// List lists assets of one kind, content excluded.
func (s *AssetService) List(ctx context.Context, kind models.AssetKind, tag string, limit, skip int) ([]models.Asset, int, error) {
	filter := store.AssetFilter{Kind: string(kind), Tag: tag, Limit: limit, Skip: skip}

	assets, err := s.store.ListAssets(ctx, filter)
	if err != nil {
		return nil, 0, storeFailure(err)
	}
	total, err := s.store.CountAssets(ctx, filter)
	if err != nil {
		return nil, 0, storeFailure(err)
	}
	return assets, total, nil
}

// OpenContent opens the raw byte stream of one asset, decoding inline
// base64 or reading the external tier object.
func (s *AssetService) OpenContent(ctx context.Context, kind models.AssetKind, rawID string) (*AssetContent, error) {
	asset, err := s.Get(ctx, kind, rawID, true)
	if err != nil {
		return nil, err
	}

	contentType := asset.ContentType
	if contentType == "" {
		contentType = fallbackAssetContentType
	}
	filename := asset.Filename
	if filename == "" {
		filename = asset.ID
	}

	tier, err := models.ParseStorageTier(asset.StorageTier)
	if err != nil {
		return nil, internalError(err)
	}

	switch tier {
	case models.StorageTierInline:
		decoded, err := base64.StdEncoding.DecodeString(asset.Content)
		if err != nil {
			return nil, internalError(fmt.Errorf("decode inline content: %w", err))
		}
		return &AssetContent{
			Reader:      io.NopCloser(bytes.NewReader(decoded)),
			SizeBytes:   int64(len(decoded)),
			ContentType: contentType,
			Filename:    filename,
		}, nil

	case models.StorageTierExternal:
		if s.blobs == nil {
			return nil, unsupportedTier(content.ErrExternalUnavailable)
		}
		blob, err := s.store.GetBlob(ctx, asset.BlobID)
		if err != nil {
			return nil, storeFailure(err)
		}
		if blob == nil {
			return nil, notFoundCode(fmt.Errorf("asset content not found"), ErrCodeContentNotFound)
		}
		rc, err := s.blobs.Open(ctx, blob.BlobKey)
		if err != nil {
			return nil, notFoundCode(fmt.Errorf("asset content not found"), ErrCodeContentNotFound)
		}
		return &AssetContent{
			Reader:      rc,
			SizeBytes:   blob.SizeBytes,
			ContentType: contentType,
			Filename:    filename,
		}, nil

	default:
		return nil, internalError(fmt.Errorf("asset has unknown storage tier %q", tier))
	}
}

// BlobGCResult reports one GC run result.
type BlobGCResult struct {
	CandidateCount int   `json:"candidate_count"`
	DeletedCount   int   `json:"deleted_count"`
	FailedCount    int   `json:"failed_count"`
	ReclaimedBytes int64 `json:"reclaimed_bytes"`
	DryRun         bool  `json:"dry_run"`
}

// GCBlobs sweeps unreferenced external-tier blobs and optionally deletes
// them from both the CAS and the store.
func (s *AssetService) GCBlobs(ctx context.Context, batchSize int, apply bool) (BlobGCResult, error) {
	result := BlobGCResult{DryRun: !apply}
	if s == nil || s.store == nil || s.blobs == nil {
		return result, unsupportedTier(content.ErrExternalUnavailable)
	}
	if batchSize <= 0 {
		batchSize = defaultBlobGCBatchSize
	}

	if !apply {
		blobs, err := s.store.ListUnreferencedBlobs(ctx, 0)
		if err != nil {
			return result, storeFailure(err)
		}
		result.CandidateCount = len(blobs)
		for _, blob := range blobs {
			result.ReclaimedBytes += blob.SizeBytes
		}
		return result, nil
	}

	for {
		blobs, err := s.store.ListUnreferencedBlobs(ctx, batchSize)
		if err != nil {
			return result, storeFailure(err)
		}
		if len(blobs) == 0 {
			return result, nil
		}
		result.CandidateCount += len(blobs)

		deletedThisBatch := 0
		for _, blob := range blobs {
			if err := s.blobs.Delete(ctx, blob.BlobKey); err != nil {
				result.FailedCount++
				continue
			}
			if err := s.store.DeleteBlob(ctx, blob.ID); err != nil {
				result.FailedCount++
				continue
			}
			deletedThisBatch++
			result.DeletedCount++
			result.ReclaimedBytes += blob.SizeBytes
		}
		// A batch where nothing was deleted would repeat forever.
		if deletedThisBatch == 0 {
			return result, nil
		}
	}
}

package server

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gav/internal/blobstore"
	"gav/internal/content"
	"gav/internal/models"
	"gav/internal/store"
)

// gcStubStore serves the blob GC surface with controllable orphans;
// every other AssetStore method is unused by GC.
type gcStubStore struct {
	store.AssetStore

	orphans     []models.Blob
	deletedRows map[string]bool
	failRowIDs  map[string]bool
}

func (s *gcStubStore) ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error) {
	remaining := []models.Blob{}
	for _, blob := range s.orphans {
		if s.deletedRows[blob.ID] {
			continue
		}
		remaining = append(remaining, blob)
		if limit > 0 && len(remaining) == limit {
			break
		}
	}
	return remaining, nil
}

func (s *gcStubStore) DeleteBlob(ctx context.Context, id string) error {
	if s.failRowIDs[id] {
		return fmt.Errorf("simulated delete failure for %s", id)
	}
	s.deletedRows[id] = true
	return nil
}

func newGCFixture(t *testing.T, orphanPayloads []string) (*AssetService, *gcStubStore, *blobstore.LocalCAS) {
	t.Helper()

	cas, err := blobstore.NewLocalCAS(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}

	stub := &gcStubStore{deletedRows: map[string]bool{}, failRowIDs: map[string]bool{}}
	for i, payload := range orphanPayloads {
		put, err := cas.Put(context.Background(), bytes.NewBufferString(payload))
		if err != nil {
			t.Fatalf("put payload %d: %v", i, err)
		}
		stub.orphans = append(stub.orphans, models.Blob{
			ID:        fmt.Sprintf("blob-%d", i),
			SHA256:    put.SHA256,
			SizeBytes: put.SizeBytes,
			BlobKey:   put.BlobKey,
		})
	}

	svc := NewAssetService(stub, cas, content.DefaultPolicy(), nil)
	return svc, stub, cas
}

func TestGCBlobsDryRun(t *testing.T) {
	svc, stub, cas := newGCFixture(t, []string{"orphan one", "orphan two"})

	result, err := svc.GCBlobs(context.Background(), 0, false)
	if err != nil {
		t.Fatalf("gc dry run: %v", err)
	}
	if !result.DryRun {
		t.Fatal("expected dry-run result")
	}
	if result.CandidateCount != 2 || result.DeletedCount != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	wantBytes := int64(len("orphan one") + len("orphan two"))
	if result.ReclaimedBytes != wantBytes {
		t.Fatalf("expected %d reclaimable bytes, got %d", wantBytes, result.ReclaimedBytes)
	}

	// Nothing was touched.
	for _, blob := range stub.orphans {
		if stub.deletedRows[blob.ID] {
			t.Fatalf("dry run deleted row %s", blob.ID)
		}
		rc, err := cas.Open(context.Background(), blob.BlobKey)
		if err != nil {
			t.Fatalf("dry run deleted object %s: %v", blob.BlobKey, err)
		}
		rc.Close()
	}
}

func TestGCBlobsApply(t *testing.T) {
	svc, stub, cas := newGCFixture(t, []string{"orphan one", "orphan two", "orphan three"})

	result, err := svc.GCBlobs(context.Background(), 2, true)
	if err != nil {
		t.Fatalf("gc apply: %v", err)
	}
	if result.DryRun {
		t.Fatal("expected non-dry-run result")
	}
	if result.DeletedCount != 3 || result.FailedCount != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	for _, blob := range stub.orphans {
		if !stub.deletedRows[blob.ID] {
			t.Fatalf("row %s not deleted", blob.ID)
		}
		if _, err := cas.Open(context.Background(), blob.BlobKey); err == nil {
			t.Fatalf("object %s still present", blob.BlobKey)
		}
	}
}

func TestGCBlobsStopsOnStuckBatch(t *testing.T) {
	svc, stub, _ := newGCFixture(t, []string{"stuck orphan"})
	stub.failRowIDs["blob-0"] = true

	result, err := svc.GCBlobs(context.Background(), 10, true)
	if err != nil {
		t.Fatalf("gc apply: %v", err)
	}
	if result.FailedCount != 1 || result.DeletedCount != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestGCBlobsRequiresBlobTier(t *testing.T) {
	svc := NewAssetService(&gcStubStore{}, nil, content.DefaultPolicy(), nil)
	if _, err := svc.GCBlobs(context.Background(), 0, true); err == nil {
		t.Fatal("expected error when blob tier is disabled")
	}
}

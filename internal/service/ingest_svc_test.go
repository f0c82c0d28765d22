package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/config"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		VectorIndexName:  "chatwithdocs",
		ChunkSize:        512,
		ChunkOverlap:     128,
		IngestBatchSize:  2,
		MaxDocumentPages: 50,
		DefaultTopK:      5,
		MaxTopK:          50,
	}
}

func testDocument() *model.Document {
	doc := &model.Document{
		OwnerID:        "owner-1",
		ConversationID: "conv-1",
		FileName:       "abc.txt",
		OriginalName:   "report.txt",
		StoragePath:    "documents/owner-1/conv-1/abc.txt",
		MimeType:       "text/plain",
		IndexStatus:    model.IndexStatusPending,
	}
	doc.ID = uuid.New()
	return doc
}

func newTestIngest(docs *fakeDocStore, chunks *fakeChunkStore, blobs BlobStore, index VectorIndex) *IngestService {
	cfg := testConfig()
	return NewIngestService(
		docs, chunks, blobs,
		NewTextExtractor(),
		NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		NewIndexNamespaceResolver(cfg.VectorIndexName),
		index,
		cfg,
	)
}

func TestIngestDocument(t *testing.T) {
	doc := testDocument()
	docs := newFakeDocStore(doc)
	chunks := &fakeChunkStore{}
	index := newFakeIndex()
	// 1500 separator-free bytes split into exactly 4 chunks at 512/128.
	svc := newTestIngest(docs, chunks, tempDirBlob(strings.Repeat("a", 1500)), index)

	result, err := svc.IngestDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}

	if result.Status != "success" {
		t.Errorf("status = %q, want success", result.Status)
	}
	if result.ChunksProcessed != 4 {
		t.Errorf("chunks processed = %d, want 4", result.ChunksProcessed)
	}
	if result.Namespace != "owner-1-conv-1" {
		t.Errorf("namespace = %q, want owner-1-conv-1", result.Namespace)
	}

	stored := docs.get(doc.ID)
	if stored.IndexStatus != model.IndexStatusCompleted {
		t.Errorf("stored status = %q, want completed", stored.IndexStatus)
	}
	if !stored.IsProcessed {
		t.Error("stored document not marked processed")
	}
	if stored.Metadata.Progress != 100 || stored.Metadata.ChunkCount != 4 {
		t.Errorf("metadata progress/count = %d/%d, want 100/4",
			stored.Metadata.Progress, stored.Metadata.ChunkCount)
	}
	if stored.Metadata.IndexName != result.IndexName || stored.Metadata.Namespace != result.Namespace {
		t.Error("index name and namespace not recorded in metadata")
	}

	// The first committed status must be processing, the last completed.
	if len(docs.statuses) < 2 || docs.statuses[0] != model.IndexStatusProcessing {
		t.Errorf("first committed status = %v, want processing", docs.statuses)
	}
	if docs.statuses[len(docs.statuses)-1] != model.IndexStatusCompleted {
		t.Errorf("last committed status = %v, want completed", docs.statuses)
	}

	if got := chunks.count(doc.ID); got != 4 {
		t.Errorf("chunk rows = %d, want 4", got)
	}
	for i, row := range chunks.rows {
		want := fmt.Sprintf("owner-1-conv-1_%s_%d", doc.ID, i)
		if row.VectorID != want {
			t.Errorf("row %d vector id = %q, want %q", i, row.VectorID, want)
		}
	}

	if got := index.countPoints(result.IndexName, result.Namespace); got != 4 {
		t.Errorf("indexed points = %d, want 4", got)
	}
}

func TestIngestDocumentNotFound(t *testing.T) {
	svc := newTestIngest(newFakeDocStore(), &fakeChunkStore{}, tempDirBlob("x"), newFakeIndex())

	_, err := svc.IngestDocument(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIngestDocumentUpsertFailure(t *testing.T) {
	doc := testDocument()
	docs := newFakeDocStore(doc)
	chunks := &fakeChunkStore{}
	index := newFakeIndex()
	index.failUpsertAt = 2
	svc := newTestIngest(docs, chunks, tempDirBlob(strings.Repeat("a", 1500)), index)

	_, err := svc.IngestDocument(context.Background(), doc.ID)
	if err == nil {
		t.Fatal("expected error from failing upsert")
	}

	stored := docs.get(doc.ID)
	if stored.IndexStatus != model.IndexStatusFailed {
		t.Errorf("stored status = %q, want failed", stored.IndexStatus)
	}
	if stored.Metadata.LastError == "" {
		t.Error("failure reason not recorded in metadata")
	}
	// The first batch was committed before the failure and stays committed.
	if got := chunks.count(doc.ID); got != 2 {
		t.Errorf("chunk rows = %d, want 2 (the committed first batch)", got)
	}
}

func TestIngestDocumentPersistFailure(t *testing.T) {
	doc := testDocument()
	docs := newFakeDocStore(doc)
	chunks := &fakeChunkStore{failCreateAt: 2}
	svc := newTestIngest(docs, chunks, tempDirBlob(strings.Repeat("a", 1500)), newFakeIndex())

	_, err := svc.IngestDocument(context.Background(), doc.ID)
	if err == nil {
		t.Fatal("expected error from failing chunk insert")
	}

	stored := docs.get(doc.ID)
	if stored.IndexStatus != model.IndexStatusFailed {
		t.Errorf("stored status = %q, want failed", stored.IndexStatus)
	}
	if stored.Metadata.LastError == "" {
		t.Error("failure reason not recorded in metadata")
	}
	// Rows from the batch committed before the failure stay in place.
	if got := chunks.count(doc.ID); got != 2 {
		t.Errorf("chunk rows = %d, want 2 (the committed first batch)", got)
	}
}

func TestIngestDocumentUnsupportedMime(t *testing.T) {
	doc := testDocument()
	doc.MimeType = "application/zip"
	docs := newFakeDocStore(doc)
	svc := newTestIngest(docs, &fakeChunkStore{}, tempDirBlob("x"), newFakeIndex())

	_, err := svc.IngestDocument(context.Background(), doc.ID)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
	if status := docs.get(doc.ID).IndexStatus; status != model.IndexStatusFailed {
		t.Errorf("stored status = %q, want failed", status)
	}
}

func TestIngestDocumentClearsStaleChunks(t *testing.T) {
	doc := testDocument()
	docs := newFakeDocStore(doc)
	chunks := &fakeChunkStore{rows: []model.DocumentChunk{
		{DocumentID: doc.ID, ChunkIndex: 7, Content: "stale", VectorID: "old-run-id"},
	}}
	svc := newTestIngest(docs, chunks, tempDirBlob("fresh content"), newFakeIndex())

	if _, err := svc.IngestDocument(context.Background(), doc.ID); err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}

	if got := chunks.count(doc.ID); got != 1 {
		t.Fatalf("chunk rows = %d, want 1", got)
	}
	if chunks.rows[0].Content != "fresh content" {
		t.Errorf("stale row survived re-ingestion: %q", chunks.rows[0].Content)
	}
}

// A client disconnect or SIGTERM cancels the request context mid-run. The
// failure commit must still land: a document left in processing would be
// rejected for re-ingestion until the next worker restart.
func TestIngestDocumentCancelledMidRun(t *testing.T) {
	doc := testDocument()
	docs := newFakeDocStore(doc)
	chunks := &fakeChunkStore{}
	index := newFakeIndex()
	svc := newTestIngest(docs, chunks, tempDirBlob(strings.Repeat("a", 1500)), index)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	index.upsertHook = cancel // cancel once the first batch is indexed

	_, err := svc.IngestDocument(ctx, doc.ID)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}

	stored := docs.get(doc.ID)
	if stored.IndexStatus != model.IndexStatusFailed {
		t.Errorf("terminal status = %q, want failed", stored.IndexStatus)
	}
	if stored.Metadata.LastError == "" {
		t.Error("cancellation not recorded in metadata")
	}
}

func TestVectorID(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	got := VectorID("owner-1-conv-1", id, 3)
	want := "owner-1-conv-1_11111111-2222-3333-4444-555555555555_3"
	if got != want {
		t.Errorf("VectorID = %q, want %q", got, want)
	}
	if got2 := VectorID("owner-1-conv-1", id, 3); got2 != got {
		t.Error("VectorID is not deterministic")
	}
}

func TestDeleteDocumentFromIndex(t *testing.T) {
	doc := testDocument()
	docs := newFakeDocStore(doc)
	chunks := &fakeChunkStore{}
	index := newFakeIndex()
	svc := newTestIngest(docs, chunks, tempDirBlob(strings.Repeat("a", 1500)), index)

	ingestResult, err := svc.IngestDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}

	result, err := svc.DeleteDocumentFromIndex(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("DeleteDocumentFromIndex failed: %v", err)
	}

	if result.Status != "success" {
		t.Errorf("status = %q, want success", result.Status)
	}
	if !result.DeleteByID.Succeeded || !result.DeleteByFilter.Succeeded || !result.StatusReset.Succeeded {
		t.Errorf("steps = %+v", result)
	}
	if result.ChunksRemovedByID != 4 {
		t.Errorf("chunks removed by id = %d, want 4", result.ChunksRemovedByID)
	}

	if got := index.countPoints(ingestResult.IndexName, ingestResult.Namespace); got != 0 {
		t.Errorf("points left in index = %d, want 0", got)
	}
	if got := chunks.count(doc.ID); got != 0 {
		t.Errorf("chunk rows left = %d, want 0", got)
	}

	stored := docs.get(doc.ID)
	if stored.IndexStatus != model.IndexStatusPending || stored.IsProcessed {
		t.Errorf("document not reset: status=%q processed=%v", stored.IndexStatus, stored.IsProcessed)
	}
	if stored.Metadata.IndexName != "" || stored.Metadata.Namespace != "" || stored.Metadata.ChunkCount != 0 {
		t.Errorf("index metadata not cleared: %+v", stored.Metadata)
	}
}

func TestDeleteDocumentFromIndexMissingIndex(t *testing.T) {
	doc := testDocument()
	docs := newFakeDocStore(doc)
	svc := newTestIngest(docs, &fakeChunkStore{}, tempDirBlob("x"), newFakeIndex())

	result, err := svc.DeleteDocumentFromIndex(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("DeleteDocumentFromIndex failed: %v", err)
	}

	if result.Status != "warning" {
		t.Errorf("status = %q, want warning", result.Status)
	}
	if result.Message != "index not found" {
		t.Errorf("message = %q", result.Message)
	}
	if !result.StatusReset.Succeeded {
		t.Error("local state not reset despite missing index")
	}
	if result.DeleteByID.Attempted || result.DeleteByFilter.Attempted {
		t.Error("vector deletion attempted against a missing index")
	}
}

func TestDeleteDocumentFromIndexDegraded(t *testing.T) {
	doc := testDocument()
	docs := newFakeDocStore(doc)
	chunks := &fakeChunkStore{}
	index := newFakeIndex()
	svc := newTestIngest(docs, chunks, tempDirBlob(strings.Repeat("a", 1500)), index)

	if _, err := svc.IngestDocument(context.Background(), doc.ID); err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}
	index.failDeleteByIDs = true

	result, err := svc.DeleteDocumentFromIndex(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("DeleteDocumentFromIndex failed: %v", err)
	}

	if result.Status != "warning" {
		t.Errorf("status = %q, want warning", result.Status)
	}
	if !result.DeleteByID.Attempted || result.DeleteByID.Succeeded {
		t.Errorf("delete by id step = %+v, want attempted failure", result.DeleteByID)
	}
	// The filter pass is independent and must still run.
	if !result.DeleteByFilter.Succeeded {
		t.Errorf("delete by filter step = %+v, want success", result.DeleteByFilter)
	}
}

func TestDeleteDocumentFromIndexNotFound(t *testing.T) {
	svc := newTestIngest(newFakeDocStore(), &fakeChunkStore{}, tempDirBlob("x"), newFakeIndex())

	_, err := svc.DeleteDocumentFromIndex(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteConversationFromIndex(t *testing.T) {
	docA := testDocument()
	docB := testDocument()
	docs := newFakeDocStore(docA, docB)
	chunks := &fakeChunkStore{}
	index := newFakeIndex()
	svc := newTestIngest(docs, chunks, tempDirBlob(strings.Repeat("a", 1500)), index)

	for _, doc := range []*model.Document{docA, docB} {
		if _, err := svc.IngestDocument(context.Background(), doc.ID); err != nil {
			t.Fatalf("IngestDocument failed: %v", err)
		}
	}

	result, err := svc.DeleteConversationFromIndex(context.Background(), "owner-1", "conv-1")
	if err != nil {
		t.Fatalf("DeleteConversationFromIndex failed: %v", err)
	}

	if result.Status != "success" {
		t.Errorf("status = %q, want success", result.Status)
	}
	if len(result.Documents) != 2 {
		t.Errorf("per-document results = %d, want 2", len(result.Documents))
	}
	if !result.NamespaceDeleted {
		t.Error("namespace sweep did not run")
	}
	if got := index.countPoints("chatwithdocs", "owner-1-conv-1"); got != 0 {
		t.Errorf("points left after conversation deletion = %d", got)
	}
}

func TestPendingDocuments(t *testing.T) {
	pending := testDocument()
	done := testDocument()
	done.IsProcessed = true
	docs := newFakeDocStore(pending, done)
	svc := newTestIngest(docs, &fakeChunkStore{}, tempDirBlob("x"), newFakeIndex())

	got, err := svc.PendingDocuments(context.Background(), "owner-1", "conv-1")
	if err != nil {
		t.Fatalf("PendingDocuments failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != pending.ID {
		t.Errorf("pending = %v, want only the unprocessed document", got)
	}
}

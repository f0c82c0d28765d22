package service

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/model"
)

// In-memory stand-ins for the pipeline's dependencies. Each fake records
// enough of what happened for the tests to assert on.

type fakeDocStore struct {
	mu       sync.Mutex
	docs     map[uuid.UUID]*model.Document
	statuses []model.IndexStatus
	failNext error
}

func newFakeDocStore(docs ...*model.Document) *fakeDocStore {
	s := &fakeDocStore{docs: make(map[uuid.UUID]*model.Document)}
	for _, d := range docs {
		copied := *d
		s.docs[d.ID] = &copied
	}
	return s
}

func (s *fakeDocStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeDocStore) Update(ctx context.Context, doc *model.Document) error {
	// Like the real repository, a write with a cancelled context is rejected.
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	copied := *doc
	s.docs[doc.ID] = &copied
	s.statuses = append(s.statuses, doc.IndexStatus)
	return nil
}

func (s *fakeDocStore) FindByConversation(ctx context.Context, ownerID, conversationID string) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Document
	for _, doc := range s.docs {
		if doc.OwnerID == ownerID && doc.ConversationID == conversationID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (s *fakeDocStore) FindPendingByConversation(ctx context.Context, ownerID, conversationID string) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Document
	for _, doc := range s.docs {
		if doc.OwnerID == ownerID && doc.ConversationID == conversationID && !doc.IsProcessed {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (s *fakeDocStore) get(id uuid.UUID) *model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[id]
}

type fakeChunkStore struct {
	mu           sync.Mutex
	rows         []model.DocumentChunk
	createCalls  int
	failCreateAt int // fail the nth CreateBatch call, 0 disables
}

func (s *fakeChunkStore) CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failCreateAt > 0 && s.createCalls == s.failCreateAt {
		return errors.New("insert refused")
	}
	s.rows = append(s.rows, chunks...)
	return nil
}

func (s *fakeChunkStore) VectorIDs(ctx context.Context, documentID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, row := range s.rows {
		if row.DocumentID == documentID && row.VectorID != "" {
			ids = append(ids, row.VectorID)
		}
	}
	return ids, nil
}

func (s *fakeChunkStore) DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.DocumentID != documentID {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}

func (s *fakeChunkStore) count(documentID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.rows {
		if row.DocumentID == documentID {
			n++
		}
	}
	return n
}

// fakeBlobStore serves one blob regardless of the requested object name.
type fakeBlobStore struct {
	content []byte
	ext     string
}

func (s *fakeBlobStore) DownloadToTemp(ctx context.Context, objectName string) (string, error) {
	f, err := os.CreateTemp("", "fakeblob-*"+s.ext)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(s.content); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (s *fakeBlobStore) Remove(ctx context.Context, objectName string) error {
	return nil
}

type fakePoint struct {
	namespace string
	content   string
	metadata  map[string]interface{}
}

type fakeIndex struct {
	mu          sync.Mutex
	collections map[string]bool
	points      map[string]map[string]fakePoint // index -> vector id -> point

	upsertCalls  int
	failUpsertAt int    // fail the nth Upsert call, 0 disables
	upsertHook   func() // runs after each successful Upsert

	failDeleteByIDs     bool
	failDeleteByFilter  bool
	failDeleteNamespace bool

	searchHits []SearchHit
	searchErr  error
	lastSearch struct {
		index, namespace, query string
		topK                    int
	}
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		collections: make(map[string]bool),
		points:      make(map[string]map[string]fakePoint),
	}
}

func (f *fakeIndex) EnsureIndex(ctx context.Context, index string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[index] = true
	if f.points[index] == nil {
		f.points[index] = make(map[string]fakePoint)
	}
	return nil
}

func (f *fakeIndex) IndexExists(ctx context.Context, index string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collections[index], nil
}

func (f *fakeIndex) ListIndexes(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name := range f.collections {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, index, namespace string, ids, texts []string, metadatas []map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.failUpsertAt > 0 && f.upsertCalls == f.failUpsertAt {
		return errors.New("upsert refused")
	}
	if f.points[index] == nil {
		f.points[index] = make(map[string]fakePoint)
	}
	for i, id := range ids {
		f.points[index][id] = fakePoint{
			namespace: namespace,
			content:   texts[i],
			metadata:  metadatas[i],
		}
	}
	if f.upsertHook != nil {
		f.upsertHook()
	}
	return nil
}

func (f *fakeIndex) DeleteByIDs(ctx context.Context, index, namespace string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeleteByIDs {
		return errors.New("delete by ids refused")
	}
	for _, id := range ids {
		if p, ok := f.points[index][id]; ok && p.namespace == namespace {
			delete(f.points[index], id)
		}
	}
	return nil
}

func (f *fakeIndex) DeleteByDocumentID(ctx context.Context, index, namespace, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeleteByFilter {
		return errors.New("delete by filter refused")
	}
	for id, p := range f.points[index] {
		if p.namespace == namespace && p.metadata["document_id"] == documentID {
			delete(f.points[index], id)
		}
	}
	return nil
}

func (f *fakeIndex) DeleteNamespace(ctx context.Context, index, namespace string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeleteNamespace {
		return errors.New("delete namespace refused")
	}
	for id, p := range f.points[index] {
		if p.namespace == namespace {
			delete(f.points[index], id)
		}
	}
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, index, namespace, query string, topK int) ([]SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSearch.index = index
	f.lastSearch.namespace = namespace
	f.lastSearch.query = query
	f.lastSearch.topK = topK
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchHits, nil
}

func (f *fakeIndex) countPoints(index, namespace string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.points[index] {
		if p.namespace == namespace {
			n++
		}
	}
	return n
}

// sanity check that the fakes keep satisfying the interfaces they stand in for
var (
	_ DocumentStore = (*fakeDocStore)(nil)
	_ ChunkStore    = (*fakeChunkStore)(nil)
	_ BlobStore     = (*fakeBlobStore)(nil)
	_ VectorIndex   = (*fakeIndex)(nil)
)

func tempDirBlob(content string) *fakeBlobStore {
	return &fakeBlobStore{content: []byte(content), ext: ".txt"}
}

package service

import (
	"context"
	"strings"
	"testing"
)

func newTestRetrieval(index VectorIndex) *RetrievalService {
	cfg := testConfig()
	return NewRetrievalService(NewIndexNamespaceResolver(cfg.VectorIndexName), index, cfg)
}

func TestRetrieveMissingIndex(t *testing.T) {
	svc := newTestRetrieval(newFakeIndex())

	fragments, err := svc.Retrieve(context.Background(), "anything", "owner-1", "conv-1", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if fragments == nil {
		t.Fatal("fragments is nil, want empty slice")
	}
	if len(fragments) != 0 {
		t.Errorf("fragments = %v, want empty", fragments)
	}
}

func TestRetrieveIndexRemovedBetweenCheckAndQuery(t *testing.T) {
	index := newFakeIndex()
	index.collections["chatwithdocs"] = true
	index.searchErr = ErrIndexNotFound
	svc := newTestRetrieval(index)

	fragments, err := svc.Retrieve(context.Background(), "anything", "owner-1", "conv-1", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(fragments) != 0 {
		t.Errorf("fragments = %v, want empty", fragments)
	}
}

func TestRetrieveMapsHits(t *testing.T) {
	index := newFakeIndex()
	index.collections["chatwithdocs"] = true
	index.searchHits = []SearchHit{
		{
			Content: "first fragment",
			Score:   0.93,
			Metadata: map[string]interface{}{
				"filename": "report.pdf",
				"page":     int64(4),
			},
		},
		{
			Content:  "second fragment",
			Score:    0.81,
			Metadata: map[string]interface{}{},
		},
	}
	svc := newTestRetrieval(index)

	fragments, err := svc.Retrieve(context.Background(), "budget summary", "owner-1", "conv-1", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(fragments) != 2 {
		t.Fatalf("got %d fragments, want 2", len(fragments))
	}

	if fragments[0].Content != "first fragment" || fragments[0].Score != 0.93 {
		t.Errorf("fragment 0 = %+v", fragments[0])
	}
	if fragments[0].Source != "report.pdf" {
		t.Errorf("source = %q, want report.pdf", fragments[0].Source)
	}
	if fragments[0].Page != 4 {
		t.Errorf("page = %d, want 4", fragments[0].Page)
	}
	if fragments[1].Source != "" || fragments[1].Page != 0 {
		t.Errorf("fragment without source metadata = %+v", fragments[1])
	}
}

func TestRetrieveTopKBounds(t *testing.T) {
	index := newFakeIndex()
	index.collections["chatwithdocs"] = true
	svc := newTestRetrieval(index)

	cases := []struct {
		name string
		in   int
		want int
	}{
		{"zero uses default", 0, 5},
		{"negative uses default", -3, 5},
		{"in range passes through", 12, 12},
		{"above max clamps", 500, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Retrieve(context.Background(), "q", "owner-1", "conv-1", tc.in); err != nil {
				t.Fatalf("Retrieve failed: %v", err)
			}
			if index.lastSearch.topK != tc.want {
				t.Errorf("topK sent to backend = %d, want %d", index.lastSearch.topK, tc.want)
			}
		})
	}
}

// Retrieval must address the exact namespace ingestion wrote to, including
// when the conversation portion was truncated.
func TestRetrieveNamespaceMatchesIngestion(t *testing.T) {
	doc := testDocument()
	doc.OwnerID = strings.Repeat("o", 40)
	doc.ConversationID = strings.Repeat("c", 40)
	docs := newFakeDocStore(doc)
	index := newFakeIndex()

	ingest := newTestIngest(docs, &fakeChunkStore{}, tempDirBlob("some indexed text"), index)
	result, err := ingest.IngestDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}

	svc := newTestRetrieval(index)
	if _, err := svc.Retrieve(context.Background(), "q", doc.OwnerID, doc.ConversationID, 5); err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}

	if index.lastSearch.namespace != result.Namespace {
		t.Errorf("retrieval namespace %q differs from ingestion namespace %q",
			index.lastSearch.namespace, result.Namespace)
	}
	if index.lastSearch.index != result.IndexName {
		t.Errorf("retrieval index %q differs from ingestion index %q",
			index.lastSearch.index, result.IndexName)
	}
}

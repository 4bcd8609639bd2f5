package vector

import (
	"context"
	"testing"
	"time"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidolu-dev/shoplore/internal/core"
)

func TestNewQdrantStore_Validation(t *testing.T) {
	_, err := NewQdrantStore("localhost", 6334, "", 1536)
	assert.Error(t, err)

	_, err = NewQdrantStore("localhost", 6334, "docs", 0)
	assert.Error(t, err)
}

func TestUpsertVectors_EmptyIsNoOp(t *testing.T) {
	// No points means no RPC: a zero-value store must not be touched.
	s := &QdrantStore{collection: "docs", dimension: 4}
	assert.NoError(t, s.UpsertVectors(context.Background(), nil))
}

func TestPayloadRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	in := core.VectorPayload{
		DocumentID:  "doc-1",
		ChunkIndex:  7,
		Text:        "chunk text",
		TokenCount:  42,
		FileName:    "guide.pdf",
		ContentType: "application/pdf",
		CreatedAt:   created,
		UploadedBy:  "merchant-1",
	}

	out := fromPayload(toPayload(&in))
	assert.Equal(t, in, out)
}

func TestFromPayload_MissingFields(t *testing.T) {
	out := fromPayload(map[string]*qdrantclient.Value{
		payloadDocumentID: {Kind: &qdrantclient.Value_StringValue{StringValue: "doc-1"}},
	})

	assert.Equal(t, "doc-1", out.DocumentID)
	assert.Zero(t, out.ChunkIndex)
	assert.Empty(t, out.Text)
	assert.True(t, out.CreatedAt.IsZero())
}

func TestToPointStruct(t *testing.T) {
	p := core.VectorPoint{
		ID:     "3f6f0a17-52c5-4fa1-9f43-1f6cfb2a9ad0",
		Vector: []float32{0.1, 0.2},
		Payload: core.VectorPayload{
			DocumentID: "doc-1",
			ChunkIndex: 0,
		},
	}

	ps := toPointStruct(&p)
	require.NotNil(t, ps)

	assert.Equal(t, p.ID, ps.GetId().GetUuid())
	assert.Equal(t, p.Vector, ps.GetVectors().GetVector().GetData())
	assert.Equal(t, "doc-1", ps.GetPayload()[payloadDocumentID].GetStringValue())
}

func TestDocumentFilter(t *testing.T) {
	f := documentFilter("doc-1")
	require.Len(t, f.GetMust(), 1)

	field := f.GetMust()[0].GetField()
	require.NotNil(t, field)
	assert.Equal(t, payloadDocumentID, field.GetKey())
	assert.Equal(t, "doc-1", field.GetMatch().GetKeyword())
}

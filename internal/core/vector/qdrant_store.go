package vector

import (
	"context"
	"fmt"
	"log"
	"time"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/davidolu-dev/shoplore/internal/core"
)

// payload field keys shared between upsert and the delete/search filters.
const (
	payloadDocumentID  = "documentId"
	payloadChunkIndex  = "chunkIndex"
	payloadText        = "text"
	payloadTokenCount  = "tokenCount"
	payloadFileName    = "fileName"
	payloadContentType = "contentType"
	payloadCreatedAt   = "createdAt"
	payloadUploadedBy  = "uploadedBy"
)

// QdrantStore manages one collection in a Qdrant instance over gRPC.
type QdrantStore struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
	dimension   uint64
}

// NewQdrantStore dials the Qdrant gRPC endpoint and returns a store bound to
// one collection with the given dimensionality.
func NewQdrantStore(host string, port int, collection string, dimension int) (*QdrantStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("qdrant collection name not set")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("qdrant dimension must be positive, got %d", dimension)
	}

	conn, err := grpc.NewClient(
		fmt.Sprintf("%s:%d", host, port),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}

	return &QdrantStore{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  collection,
		dimension:   uint64(dimension),
	}, nil
}

func (s *QdrantStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// InitCollection creates the collection if it does not exist. If it exists
// with a different dimensionality it is dropped and recreated, discarding all
// stored vectors; a dimension change makes the old vectors unusable anyway.
func (s *QdrantStore) InitCollection(ctx context.Context) error {
	collections, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return &core.VectorStoreError{Op: "list collections", Err: err}
	}

	exists := false
	for _, col := range collections.GetCollections() {
		if col.GetName() == s.collection {
			exists = true
			break
		}
	}

	if exists {
		info, err := s.collections.Get(ctx, &qdrantclient.GetCollectionInfoRequest{
			CollectionName: s.collection,
		})
		if err != nil {
			return &core.VectorStoreError{Op: "get collection info", Err: err}
		}

		size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size == s.dimension {
			return nil
		}

		log.Printf("WARN: collection %q has dimension %d, expected %d; recreating and discarding existing vectors",
			s.collection, size, s.dimension)
		if _, err := s.collections.Delete(ctx, &qdrantclient.DeleteCollection{
			CollectionName: s.collection,
		}); err != nil {
			return &core.VectorStoreError{Op: "delete collection", Err: err}
		}
	}

	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     s.dimension,
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return &core.VectorStoreError{Op: "create collection", Err: err}
	}

	log.Printf("Created qdrant collection %q (dim=%d, cosine)", s.collection, s.dimension)
	return nil
}

// UpsertVectors writes all points in one call with wait=true so the write is
// visible to searches when this returns. An empty batch is a no-op.
func (s *QdrantStore) UpsertVectors(ctx context.Context, points []core.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	upsert := make([]*qdrantclient.PointStruct, 0, len(points))
	for i := range points {
		upsert = append(upsert, toPointStruct(&points[i]))
	}

	wait := true
	_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         upsert,
	})
	if err != nil {
		log.Printf("qdrant upsert of %d points failed: %v", len(upsert), err)
		return &core.VectorStoreError{Op: "upsert", Err: err}
	}
	return nil
}

// SearchSimilar runs a cosine KNN query. A non-empty documentID restricts
// results to vectors of that document.
func (s *QdrantStore) SearchSimilar(ctx context.Context, vector []float32, limit int, documentID string) ([]core.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	req := &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if documentID != "" {
		req.Filter = documentFilter(documentID)
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		log.Printf("qdrant search failed: %v", err)
		return nil, &core.VectorStoreError{Op: "search", Err: err}
	}

	hits := make([]core.SearchHit, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		hits = append(hits, core.SearchHit{
			ID:      point.GetId().GetUuid(),
			Score:   point.GetScore(),
			Payload: fromPayload(point.GetPayload()),
		})
	}
	return hits, nil
}

// DeleteDocumentVectors removes every vector whose payload documentId
// matches, waiting for completion.
func (s *QdrantStore) DeleteDocumentVectors(ctx context.Context, documentID string) error {
	wait := true
	_, err := s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Filter{
				Filter: documentFilter(documentID),
			},
		},
	})
	if err != nil {
		log.Printf("qdrant delete for document %s failed: %v", documentID, err)
		return &core.VectorStoreError{Op: "delete", Err: err}
	}
	return nil
}

func documentFilter(documentID string) *qdrantclient.Filter {
	return &qdrantclient.Filter{
		Must: []*qdrantclient.Condition{
			{
				ConditionOneOf: &qdrantclient.Condition_Field{
					Field: &qdrantclient.FieldCondition{
						Key: payloadDocumentID,
						Match: &qdrantclient.Match{
							MatchValue: &qdrantclient.Match_Keyword{Keyword: documentID},
						},
					},
				},
			},
		},
	}
}

func toPointStruct(p *core.VectorPoint) *qdrantclient.PointStruct {
	return &qdrantclient.PointStruct{
		Id: &qdrantclient.PointId{
			PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: p.ID},
		},
		Vectors: &qdrantclient.Vectors{
			VectorsOptions: &qdrantclient.Vectors_Vector{
				Vector: &qdrantclient.Vector{Data: p.Vector},
			},
		},
		Payload: toPayload(&p.Payload),
	}
}

func toPayload(p *core.VectorPayload) map[string]*qdrantclient.Value {
	return map[string]*qdrantclient.Value{
		payloadDocumentID:  {Kind: &qdrantclient.Value_StringValue{StringValue: p.DocumentID}},
		payloadChunkIndex:  {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
		payloadText:        {Kind: &qdrantclient.Value_StringValue{StringValue: p.Text}},
		payloadTokenCount:  {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(p.TokenCount)}},
		payloadFileName:    {Kind: &qdrantclient.Value_StringValue{StringValue: p.FileName}},
		payloadContentType: {Kind: &qdrantclient.Value_StringValue{StringValue: p.ContentType}},
		payloadCreatedAt:   {Kind: &qdrantclient.Value_StringValue{StringValue: p.CreatedAt.UTC().Format(time.RFC3339)}},
		payloadUploadedBy:  {Kind: &qdrantclient.Value_StringValue{StringValue: p.UploadedBy}},
	}
}

func fromPayload(payload map[string]*qdrantclient.Value) core.VectorPayload {
	p := core.VectorPayload{}
	if v, ok := payload[payloadDocumentID]; ok {
		p.DocumentID = v.GetStringValue()
	}
	if v, ok := payload[payloadChunkIndex]; ok {
		p.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := payload[payloadText]; ok {
		p.Text = v.GetStringValue()
	}
	if v, ok := payload[payloadTokenCount]; ok {
		p.TokenCount = int(v.GetIntegerValue())
	}
	if v, ok := payload[payloadFileName]; ok {
		p.FileName = v.GetStringValue()
	}
	if v, ok := payload[payloadContentType]; ok {
		p.ContentType = v.GetStringValue()
	}
	if v, ok := payload[payloadCreatedAt]; ok {
		if t, err := time.Parse(time.RFC3339, v.GetStringValue()); err == nil {
			p.CreatedAt = t
		}
	}
	if v, ok := payload[payloadUploadedBy]; ok {
		p.UploadedBy = v.GetStringValue()
	}
	return p
}

var _ core.VectorStore = (*QdrantStore)(nil)

package vector

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Store is the sole owner of all Qdrant operations for the enrichment
// pipeline.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a Store connected to Qdrant at the given gRPC address.
func New(addr, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("vector: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error { return s.conn.Close() }

// EnsureCollection creates archon_vectors if missing. dims must match the
// embedding model's output dimension; a mismatch against a live collection
// of a different size is surfaced by CheckDimensions as startup-fatal.
func (s *Store) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("vector: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vector: create collection %s: %w", s.collection, err)
	}
	return nil
}

// CheckDimensions compares the live collection's configured vector size
// against want, returning an error on mismatch. Called once at startup
// after EnsureCollection; a mismatch is fatal.
func (s *Store) CheckDimensions(ctx context.Context, want int) error {
	info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: s.collection})
	if err != nil {
		return fmt.Errorf("vector: get collection %s: %w", s.collection, err)
	}
	params := info.GetResult().GetConfig().GetParams()
	got := int(params.GetVectorsConfig().GetParams().GetSize())
	if got != 0 && got != want {
		return fmt.Errorf("vector: collection %s has dimension %d, configured %d", s.collection, got, want)
	}
	return nil
}

// Upsert writes points into the collection. Deterministic IDs make this
// idempotent: re-upserting the same (project, content_hash) replaces the
// existing point rather than creating a duplicate (I4).
func (s *Store) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	out := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		out[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID.String()}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}},
			},
			Payload: payloadToProto(p.Payload),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         out,
	})
	if err != nil {
		return fmt.Errorf("vector: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Exists checks whether a point with the given deterministic id exists, used
// by the smoke test and by the data-integrity validator's coverage check.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: s.collection,
		Ids: []*pb.PointId{
			{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
		},
	})
	if err != nil {
		return false, fmt.Errorf("vector: get point %s: %w", id, err)
	}
	return len(resp.GetResult()) > 0, nil
}

// Search performs k-NN similarity search, optionally filtered by payload
// field equality (used by the data-integrity validator's
// dimension-consistency check).
func (s *Store) Search(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]SearchHit, error) {
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(filters) > 0 {
		must := make([]*pb.Condition, 0, len(filters))
		for k, v := range filters {
			must = append(must, fieldMatch(k, v))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vector: search: %w", err)
	}
	hits := make([]SearchHit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		payload := make(map[string]string, len(r.GetPayload()))
		for k, v := range r.GetPayload() {
			payload[k] = v.GetStringValue()
		}
		hits[i] = SearchHit{ID: r.GetId().GetUuid(), Score: r.GetScore(), Payload: payload}
	}
	return hits, nil
}

// Scroll pages through points matching filters, used by the data-integrity
// validator's path-retrieval and metadata-filter-accuracy checks.
func (s *Store) Scroll(ctx context.Context, filters map[string]string, limit uint32, offset string) (ids []string, next string, err error) {
	req := &pb.ScrollPoints{
		CollectionName: s.collection,
		Limit:          &limit,
	}
	if offset != "" {
		req.Offset = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: offset}}
	}
	if len(filters) > 0 {
		must := make([]*pb.Condition, 0, len(filters))
		for k, v := range filters {
			must = append(must, fieldMatch(k, v))
		}
		req.Filter = &pb.Filter{Must: must}
	}
	resp, err := s.points.Scroll(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("vector: scroll: %w", err)
	}
	out := make([]string, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		out[i] = p.GetId().GetUuid()
	}
	if n := resp.GetNextPageOffset(); n != nil {
		next = n.GetUuid()
	}
	return out, next, nil
}

// Count returns the live point count in the collection.
func (s *Store) Count(ctx context.Context) (int64, error) {
	wait := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: s.collection, Exact: &wait})
	if err != nil {
		return 0, fmt.Errorf("vector: count: %w", err)
	}
	return int64(resp.GetResult().GetCount()), nil
}

func payloadToProto(p Payload) map[string]*pb.Value {
	return map[string]*pb.Value{
		"document_id":   {Kind: &pb.Value_StringValue{StringValue: p.DocumentID}},
		"project_name":  {Kind: &pb.Value_StringValue{StringValue: p.ProjectName}},
		"file_path":     {Kind: &pb.Value_StringValue{StringValue: p.FilePath}},
		"language":      {Kind: &pb.Value_StringValue{StringValue: p.Language}},
		"document_type": {Kind: &pb.Value_StringValue{StringValue: p.DocumentType}},
		"content_hash":  {Kind: &pb.Value_StringValue{StringValue: p.ContentHash}},
		"quality_score": {Kind: &pb.Value_DoubleValue{DoubleValue: p.QualityScore}},
	}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

// Package qdrant implements storage.DocumentIndex on a Qdrant collection
// over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// contentKey is the payload field holding passage text. Metadata keys are
// stored alongside it at the top level so filters address them directly.
const contentKey = "content"

// pointsClient is the subset of pb.PointsClient used by Index.
type pointsClient interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsClient is the subset of pb.CollectionsClient used by Index.
type collectionsClient interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Index stores documents as points in one Qdrant collection.
type Index struct {
	conn        *grpc.ClientConn
	points      pointsClient
	collections collectionsClient
	collection  string
	logger      *slog.Logger
}

var _ storage.DocumentIndex = (*Index)(nil)

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger.With("component", "qdrant")
		return nil
	}
}

// New connects to Qdrant at the given gRPC address.
func New(addr, collection string, opts ...Option) (*Index, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial qdrant %s: %w", addr, err)
	}
	idx, err := newIndex(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	idx.conn = conn
	return idx, nil
}

func newIndex(points pointsClient, collections collectionsClient, collection string, opts ...Option) (*Index, error) {
	idx := &Index{
		points:      points,
		collections: collections,
		collection:  collection,
		logger:      slog.Default().With("component", "qdrant"),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Close closes the underlying gRPC connection.
func (i *Index) Close() error {
	if i.conn == nil {
		return nil
	}
	return i.conn.Close()
}

// EnsureCollection creates the collection with cosine distance if it doesn't exist.
func (i *Index) EnsureCollection(ctx context.Context, dims int) error {
	list, err := i.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == i.collection {
			return nil
		}
	}

	_, err = i.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: i.collection,
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
		return fmt.Errorf("failed to create collection %s: %w", i.collection, err)
	}
	i.logger.Info("created collection", "collection", i.collection, "dims", dims)
	return nil
}

// AddDocuments upserts documents as points keyed by document ID.
func (i *Index) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	if len(docs) == 0 {
		return docs, nil
	}

	now := time.Now().UTC()
	points := make([]*pb.PointStruct, len(docs))
	for n, doc := range docs {
		if doc.Id == 0 {
			doc.Id = core.PassageID(doc.Content, doc.Metadata)
		}
		doc.InsertedAt = now
		doc.UpdatedAt = now
		points[n] = toPoint(doc)
	}

	wait := true
	_, err := i.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: i.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return docs, nil
}

// FindSimilar runs a k-NN search with optional metadata filtering.
func (i *Index) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int, filter map[string]any) ([]*core.DocumentMatch, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	req := &pb.SearchPoints{
		CollectionName: i.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		Filter:         toFilter(filter),
	}
	if minSimilarity > 0 {
		req.ScoreThreshold = &minSimilarity
	}

	resp, err := i.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", i.collection, err)
	}

	results := make([]*core.DocumentMatch, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		results = append(results, &core.DocumentMatch{
			Document: fromPayload(core.ID(r.GetId().GetNum()), r.GetPayload()),
			Score:    r.GetScore(),
		})
	}
	return results, nil
}

func toPoint(doc *core.Document) *pb.PointStruct {
	payload := make(map[string]*pb.Value, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		payload[k] = toValue(v)
	}
	payload[contentKey] = toValue(doc.Content)

	return &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Num{Num: uint64(doc.Id)},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: doc.Vector},
			},
		},
		Payload: payload,
	}
}

func toValue(v any) *pb.Value {
	switch tv := v.(type) {
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	case []string:
		values := make([]*pb.Value, len(tv))
		for n, s := range tv {
			values[n] = toValue(s)
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
	case []any:
		values := make([]*pb.Value, len(tv))
		for n, e := range tv {
			values[n] = toValue(e)
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func fromValue(v *pb.Value) any {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_IntegerValue:
		return k.IntegerValue
	case *pb.Value_DoubleValue:
		return k.DoubleValue
	case *pb.Value_BoolValue:
		return k.BoolValue
	case *pb.Value_ListValue:
		out := make([]any, 0, len(k.ListValue.GetValues()))
		for _, e := range k.ListValue.GetValues() {
			out = append(out, fromValue(e))
		}
		return out
	}
	return nil
}

func fromPayload(id core.ID, payload map[string]*pb.Value) *core.Document {
	doc := &core.Document{
		Id:       id,
		Metadata: make(map[string]any, len(payload)),
	}
	for k, v := range payload {
		if k == contentKey {
			doc.Content = v.GetStringValue()
			continue
		}
		doc.Metadata[k] = fromValue(v)
	}
	return doc
}

// toFilter turns a metadata filter into a conjunction of exact matches.
func toFilter(filter map[string]any) *pb.Filter {
	if len(filter) == 0 {
		return nil
	}
	must := make([]*pb.Condition, 0, len(filter))
	for k, v := range filter {
		must = append(must, fieldMatch(k, v))
	}
	return &pb.Filter{Must: must}
}

func fieldMatch(key string, value any) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: toMatch(value),
			},
		},
	}
}

func toMatch(value any) *pb.Match {
	switch v := value.(type) {
	case int:
		return &pb.Match{MatchValue: &pb.Match_Integer{Integer: int64(v)}}
	case int64:
		return &pb.Match{MatchValue: &pb.Match_Integer{Integer: v}}
	case float64:
		if v == math.Trunc(v) {
			return &pb.Match{MatchValue: &pb.Match_Integer{Integer: int64(v)}}
		}
	case bool:
		return &pb.Match{MatchValue: &pb.Match_Boolean{Boolean: v}}
	}
	return &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: fmt.Sprint(value)}}
}

package vector

import (
	"context"
	"fmt"
	"math"

	qdrant "github.com/qdrant/go-client/qdrant"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"receipt-impact/src/pkg/products"
	"receipt-impact/src/pkg/resilience"
)

// Payload keys of a catalogue point.
const (
	payloadName            = "name"
	payloadCategory        = "category"
	payloadCo2Factor       = "co2_factor"
	payloadIsLocal         = "is_local"
	payloadHasEcoPackaging = "has_eco_packaging"
)

// Embedder turns a product name into the vector space of the catalogue.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, *xerr.Error)
}

/*
QdrantMatcher implements products.Matcher with an embedding call followed by
a similarity search in the store's Qdrant collection.
*/
type QdrantMatcher struct {
	points         qdrant.PointsClient
	conn           *grpc.ClientConn
	embedder       Embedder
	executor       *resilience.Executor
	limit          uint64
	scoreThreshold float32
}

// Dial opens the gRPC connection used by NewQdrantMatcher.
func Dial(address string) (conn *grpc.ClientConn, e *xerr.Error) {
	if address == "" {
		return nil, xerr.NewError(fmt.Errorf("qdrant address is required"), "unable to connect to qdrant", nil)
	}
	conn, err := grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, xerr.NewError(err, "unable to connect to qdrant", address)
	}
	tl.Log(tl.Info1, palette.Green, "Connected to qdrant at '%s'", address)
	return conn, nil
}

func NewQdrantMatcher(conn *grpc.ClientConn, embedder Embedder, executor *resilience.Executor, limit int, scoreThreshold float64) *QdrantMatcher {
	matcher := newMatcher(qdrant.NewPointsClient(conn), embedder, executor, limit, scoreThreshold)
	matcher.conn = conn
	return matcher
}

func newMatcher(points qdrant.PointsClient, embedder Embedder, executor *resilience.Executor, limit int, scoreThreshold float64) *QdrantMatcher {
	if limit <= 0 {
		limit = 3
	}
	return &QdrantMatcher{
		points:         points,
		embedder:       embedder,
		executor:       executor,
		limit:          uint64(limit),
		scoreThreshold: float32(scoreThreshold),
	}
}

func (q *QdrantMatcher) Close() error {
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}

/*
FindSimilar returns the best-scoring catalogue entry above the score
threshold, or nil when there is none.

Hits are ordered by score; with validateCo2 the first hit carrying a finite,
non-negative co2_factor wins.
*/
func (q *QdrantMatcher) FindSimilar(ctx context.Context, name, collection string, validateCo2 bool) (match *products.Match, e *xerr.Error) {
	vector, e := q.embedder.Embed(ctx, name)
	if e != nil {
		return nil, e
	}

	request := &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          q.limit,
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if q.scoreThreshold > 0 {
		request.ScoreThreshold = &q.scoreThreshold
	}

	var response *qdrant.SearchResponse
	search := func(ctx context.Context) error {
		var err error
		response, err = q.points.Search(ctx, request)
		return err
	}
	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "qdrant.search", search, classifySearchError)
	} else {
		err = search(ctx)
	}
	if status.Code(err) == codes.NotFound {
		// A store without its own catalogue collection is a miss, not an outage.
		tl.Log(tl.Warning, palette.Yellow, "Catalogue collection '%s' not found, no match for '%s'", collection, name)
		return nil, nil
	}
	if err != nil {
		return nil, xerr.NewError(err, "qdrant search failed", map[string]any{"collection": collection, "name": name})
	}

	for _, hit := range response.GetResult() {
		candidate, ok := matchFromPayload(hit.GetPayload(), validateCo2)
		if !ok {
			tl.Log(tl.Debug, palette.PurpleDim, "Skipping catalogue hit without a usable co2 factor for '%s'", name)
			continue
		}
		candidate.Score = float64(hit.GetScore())
		tl.Log(
			tl.Debug, palette.CyanDim, "Catalogue match for '%s' in '%s': '%s' (%s)",
			name, collection, candidate.Name, fmt.Sprintf("%.3f", candidate.Score),
		)
		return &candidate, nil
	}
	return nil, nil
}

func matchFromPayload(payload map[string]*qdrant.Value, validateCo2 bool) (match products.Match, ok bool) {
	match.Name = stringValue(payload[payloadName])
	match.Category = stringValue(payload[payloadCategory])
	match.IsLocal = boolValue(payload[payloadIsLocal])
	match.HasEcoPackaging = boolValue(payload[payloadHasEcoPackaging])

	co2, present := numberValue(payload[payloadCo2Factor])
	match.Co2Factor = co2
	if validateCo2 && (!present || co2 < 0 || math.IsNaN(co2) || math.IsInf(co2, 0)) {
		return match, false
	}
	return match, match.Category != ""
}

func stringValue(value *qdrant.Value) string {
	if kind, ok := value.GetKind().(*qdrant.Value_StringValue); ok {
		return kind.StringValue
	}
	return ""
}

func boolValue(value *qdrant.Value) bool {
	if kind, ok := value.GetKind().(*qdrant.Value_BoolValue); ok {
		return kind.BoolValue
	}
	return false
}

func numberValue(value *qdrant.Value) (number float64, ok bool) {
	switch kind := value.GetKind().(type) {
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue, true
	case *qdrant.Value_IntegerValue:
		return float64(kind.IntegerValue), true
	default:
		return 0, false
	}
}

// classifySearchError retries transient gRPC failures and leaves cancellation alone.
func classifySearchError(err error) resilience.ErrorClassification {
	if ctxClass := resilience.ClassifyTransport(err); !ctxClass.RecordFailure && !ctxClass.Retryable {
		return ctxClass
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case codes.NotFound, codes.InvalidArgument, codes.FailedPrecondition:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

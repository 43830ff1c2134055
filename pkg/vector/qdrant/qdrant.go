// Package qdrant provides an accelerated vector index backed by a Qdrant server.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/memoria/pkg/logger"
	"github.com/papercomputeco/memoria/pkg/vector"
)

const (
	// DefaultPort is the Qdrant gRPC port.
	DefaultPort = 6334

	payloadID = "doc_id"
)

// pointNamespace seeds the deterministic point ids derived from record ids.
var pointNamespace = uuid.MustParse("6f0d5c8e-3c1a-4f43-9a59-6d2f0b7f4e21")

// Config holds configuration for the Qdrant index.
type Config struct {
	// Target is host[:port] or a URL of the Qdrant gRPC endpoint.
	Target string

	APIKey string

	// Collection is the Qdrant collection name.
	Collection string

	Dimensions int
}

// Index implements vector.Index on one Qdrant collection.
type Index struct {
	client     *qc.Client
	collection string
	dims       int
	logger     *slog.Logger
}

// New connects to Qdrant and creates the collection when missing.
func New(ctx context.Context, c Config, log *slog.Logger) (*Index, error) {
	if c.Collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}
	if log == nil {
		log = logger.Nop()
	}

	host, port, useTLS, err := ParseTarget(c.Target)
	if err != nil {
		return nil, err
	}

	client, err := qc.NewClient(&qc.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	idx := &Index{
		client:     client,
		collection: c.Collection,
		dims:       c.Dimensions,
		logger:     log,
	}
	if err := idx.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	log.Debug("qdrant index opened", "host", host, "port", port, "collection", c.Collection)
	return idx, nil
}

// ParseTarget splits a target into host, port and whether TLS is wanted.
// A bare host uses DefaultPort; an https URL enables TLS.
func ParseTarget(target string) (string, int, bool, error) {
	if target == "" {
		return "localhost", DefaultPort, false, nil
	}

	useTLS := false
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", 0, false, fmt.Errorf("parsing qdrant target %q: %w", target, err)
		}
		useTLS = u.Scheme == "https"
		target = u.Host
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return target, DefaultPort, useTLS, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q", portStr)
	}

	return host, port, useTLS, nil
}

// PointID maps a record id onto the UUID Qdrant stores it under.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

func (q *Index) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     uint64(q.dims),
			Distance: qc.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating qdrant collection %s: %w", q.collection, err)
	}
	return nil
}

// Upsert stores records, replacing points with the same id.
func (q *Index) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qc.PointStruct, 0, len(records))
	for _, rec := range records {
		if len(rec.Vector) != q.dims {
			return fmt.Errorf("%w: record %s has %d, index has %d", vector.ErrDimension, rec.ID, len(rec.Vector), q.dims)
		}
		points = append(points, &qc.PointStruct{
			Id:      qc.NewID(PointID(rec.ID)),
			Vectors: qc.NewVectorsDense(rec.Vector),
			Payload: qc.NewValueMap(map[string]any{payloadID: rec.ID}),
		})
	}

	_, err := q.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qc.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting into qdrant: %w", err)
	}
	return nil
}

// Delete removes records by id.
func (q *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qc.NewID(PointID(id))
	}

	_, err := q.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: q.collection,
		Wait:           qc.PtrOf(true),
		Points:         qc.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("deleting from qdrant: %w", err)
	}
	return nil
}

// Query returns up to topK records ordered by cosine similarity.
func (q *Index) Query(ctx context.Context, query []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	points, err := q.client.Query(ctx, &qc.QueryPoints{
		CollectionName: q.collection,
		Query:          qc.NewQueryDense(query),
		Limit:          qc.PtrOf(uint64(topK)),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying qdrant: %w", err)
	}

	matches := make([]vector.Match, 0, len(points))
	for _, p := range points {
		id, ok := p.GetPayload()[payloadID]
		if !ok {
			continue
		}
		matches = append(matches, vector.Match{ID: id.GetStringValue(), Score: p.GetScore()})
	}
	return matches, nil
}

// Count returns the exact number of points in the collection.
func (q *Index) Count(ctx context.Context) (int, error) {
	n, err := q.client.Count(ctx, &qc.CountPoints{
		CollectionName: q.collection,
		Exact:          qc.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting qdrant points: %w", err)
	}
	return int(n), nil
}

// Replace drops and recreates the collection, then loads records.
func (q *Index) Replace(ctx context.Context, records []vector.Record) error {
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("dropping qdrant collection %s: %w", q.collection, err)
	}
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}
	if err := q.Upsert(ctx, records); err != nil {
		return err
	}

	q.logger.Debug("replaced qdrant collection", "collection", q.collection, "records", len(records))
	return nil
}

func (q *Index) Close() error {
	return q.client.Close()
}

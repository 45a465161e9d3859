// Package qdrant adapts a Qdrant collection to proximity.Searcher.
package qdrant

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/hupe1980/proximity"
	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/model"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Compile-time check to ensure Searcher satisfies the proximity interface.
var _ proximity.Searcher = (*Searcher)(nil)

// Options contains configuration options for the Qdrant searcher.
type Options struct {
	// Collection is the Qdrant collection to search.
	Collection string
	// K is the number of neighbors returned per search.
	K uint64
	// Metric is the collection's distance. Qdrant reports cosine
	// similarity as a score; it is converted to 1 - score.
	Metric distance.Metric
	// DialOptions are passed to grpc.NewClient. Without any, an insecure
	// connection is used.
	DialOptions []grpc.DialOption
}

// DefaultOptions contains the default configuration options for the Qdrant searcher.
var DefaultOptions = Options{
	K:      10,
	Metric: distance.MetricCosine,
}

// Searcher runs nearest-neighbor queries against a Qdrant collection.
type Searcher struct {
	opts   Options
	conn   *grpc.ClientConn
	points pb.PointsClient
}

// New connects to the Qdrant gRPC endpoint at addr (e.g. "localhost:6334").
func New(addr string, optFns ...func(o *Options)) (*Searcher, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection is required")
	}

	dial := opts.DialOptions
	if len(dial) == 0 {
		dial = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}

	conn, err := grpc.NewClient(addr, dial...)
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	return &Searcher{
		opts:   opts,
		conn:   conn,
		points: pb.NewPointsClient(conn),
	}, nil
}

// NewWithClient wraps an existing points client.
func NewWithClient(points pb.PointsClient, optFns ...func(o *Options)) *Searcher {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Searcher{opts: opts, points: points}
}

// Search implements proximity.Searcher.
func (s *Searcher) Search(ctx context.Context, v model.Vector) (model.Result, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.opts.Collection,
		Vector:         v.Values(),
		Limit:          s.opts.K,
	})
	if err != nil {
		return model.Result{}, err
	}

	out := make([]model.Neighbor, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		out[i] = model.Neighbor{
			ID:       pointID(pt.GetId()),
			Distance: s.toDistance(pt.GetScore()),
		}
	}
	return model.Result{Neighbors: out}, nil
}

// Close closes the underlying connection, if the searcher owns one.
func (s *Searcher) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Searcher) toDistance(score float32) float32 {
	if s.opts.Metric == distance.MetricCosine {
		return 1 - score
	}
	return score
}

// pointID maps numeric IDs through unchanged and hashes UUIDs.
func pointID(id *pb.PointId) uint64 {
	if uuid := id.GetUuid(); uuid != "" {
		h := fnv.New64a()
		_, _ = h.Write([]byte(uuid))
		return h.Sum64()
	}
	return id.GetNum()
}

package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/proximity/distance"
	"github.com/hupe1980/proximity/model"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

type fakePoints struct {
	pb.PointsClient

	got  *pb.SearchPoints
	resp *pb.SearchResponse
	err  error
}

func (f *fakePoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	f.got = in
	return f.resp, f.err
}

func TestSearch(t *testing.T) {
	fake := &fakePoints{resp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		{Id: &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: 7}}, Score: 0.75},
		{Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "a-b"}}, Score: 0.5},
	}}}

	s := NewWithClient(fake, func(o *Options) {
		o.Collection = "docs"
		o.K = 2
	})

	res, err := s.Search(context.Background(), model.NewVector([]float32{1, 2}))
	require.NoError(t, err)

	assert.Equal(t, "docs", fake.got.GetCollectionName())
	assert.Equal(t, uint64(2), fake.got.GetLimit())
	assert.Equal(t, []float32{1, 2}, fake.got.GetVector())

	require.Equal(t, 2, res.Len())
	assert.Equal(t, uint64(7), res.Neighbors[0].ID)
	assert.InDelta(t, 0.25, res.Neighbors[0].Distance, 1e-6)
	assert.Equal(t, pointID(&pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "a-b"}}), res.Neighbors[1].ID)
	assert.NoError(t, s.Close())
}

func TestSearchEuclidean(t *testing.T) {
	fake := &fakePoints{resp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		{Id: &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: 1}}, Score: 3},
	}}}
	s := NewWithClient(fake, func(o *Options) { o.Metric = distance.MetricL2 })

	res, err := s.Search(context.Background(), model.NewVector([]float32{0}))
	require.NoError(t, err)
	assert.Equal(t, float32(3), res.Neighbors[0].Distance)
}

func TestSearchError(t *testing.T) {
	errUnavailable := errors.New("unavailable")
	s := NewWithClient(&fakePoints{err: errUnavailable})

	_, err := s.Search(context.Background(), model.NewVector([]float32{0}))
	assert.Equal(t, errUnavailable, err)
}

func TestNewRequiresCollection(t *testing.T) {
	_, err := New("localhost:6334")
	assert.Error(t, err)

	s, err := New("localhost:6334", func(o *Options) { o.Collection = "docs" })
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

package proximity_test

import (
	"context"
	"fmt"

	"github.com/hupe1980/proximity"
	"github.com/hupe1980/proximity/index"
	"github.com/hupe1980/proximity/model"
)

func Example() {
	ctx := context.Background()

	backend := proximity.SearcherFunc(func(_ context.Context, v model.Vector) (model.Result, error) {
		return model.Result{Neighbors: []model.Neighbor{{ID: uint64(v.At(0)), Distance: 0}}}, nil
	})

	cache, err := proximity.New(2, backend,
		proximity.WithCapacity(100),
		proximity.WithRadius(0.5),
		proximity.WithIndex(index.KindBallTree, 0),
	)
	if err != nil {
		panic(err)
	}
	defer cache.Close()

	_, hit, _ := cache.Answer(ctx, model.NewVector([]float32{3, 4}))
	fmt.Println("first:", hit)

	res, hit, _ := cache.Answer(ctx, model.NewVector([]float32{3.1, 4}))
	fmt.Println("nearby:", hit, res.Neighbors[0].ID)

	_, hit, _ = cache.Answer(ctx, model.NewVector([]float32{7, 7}))
	fmt.Println("far:", hit)

	// Output:
	// first: false
	// nearby: true 3
	// far: false
}

func ExampleCache_InvalidateRegion() {
	ctx := context.Background()

	cache, _ := proximity.New(2, proximity.SearcherFunc(func(context.Context, model.Vector) (model.Result, error) {
		return model.Result{}, nil
	}))
	defer cache.Close()

	for _, xs := range [][]float32{{0, 0}, {0, 1}, {10, 10}} {
		_, _ = cache.Put(ctx, model.NewVector(xs), model.Result{}, 0.5)
	}

	removed, _ := cache.InvalidateRegion(ctx, model.NewVector([]float32{0, 0}), 1)
	fmt.Println(removed, cache.Len())

	// Output: 2 1
}

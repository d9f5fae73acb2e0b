package embedding

import (
	"context"
	"errors"
	"hash/fnv"
	"sync/atomic"
)

// fakeOracle deterministically derives a low-dimensional vector from the
// text's hash, so semantically-same inputs produce the same embedding in
// tests without depending on a real model.
type fakeOracle struct {
	dims      int
	failCount int32 // number of calls, from the start, that should fail
	calls     int32
}

func newFakeOracle(dims int) *fakeOracle {
	return &fakeOracle{dims: dims}
}

func (f *fakeOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failCount {
		return nil, errors.New("fake oracle failure")
	}
	return vectorFor(text, f.dims), nil
}

func (f *fakeOracle) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeOracle) Dimensions() int { return f.dims }

func vectorFor(text string, dims int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	vec := make([]float32, dims)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>40)%1000) / 1000
	}
	return vec
}

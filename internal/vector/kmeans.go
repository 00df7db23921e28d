package vector

import (
	"context"
	"math"
	"math/rand"
)

const (
	kmeansMaxIterations = 25
	kmeansSeed          = 42
)

// trainKMeans clusters vectors into k centroids with k-means++ seeding and Lloyd iterations.
// The seed is fixed so builds over the same data are reproducible. k is capped at len(vectors).
func trainKMeans(ctx context.Context, vectors [][]float32, k int) ([][]float32, []int, error) {
	n := len(vectors)
	if n == 0 || k <= 0 {
		return nil, nil, nil
	}
	if k > n {
		k = n
	}
	dim := len(vectors[0])
	rng := rand.New(rand.NewSource(kmeansSeed))
	centroids := seedPlusPlus(rng, vectors, k)

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		changed := 0
		for i, v := range vectors {
			c := nearestCentroid(centroids, v)
			if c != assign[i] {
				assign[i] = c
				changed++
			}
		}
		if changed == 0 {
			break
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := assign[i]
			counts[c]++
			for j, x := range v {
				sums[c][j] += float64(x)
			}
		}
		for c := range centroids {
			// an emptied cluster keeps its previous centroid
			if counts[c] == 0 {
				continue
			}
			for j := range centroids[c] {
				centroids[c][j] = float32(sums[c][j] / float64(counts[c]))
			}
		}
	}
	return centroids, assign, nil
}

func seedPlusPlus(rng *rand.Rand, vectors [][]float32, k int) [][]float32 {
	centroids := make([][]float32, 0, k)
	first := vectors[rng.Intn(len(vectors))]
	centroids = append(centroids, cloneVector(first))

	dist := make([]float64, len(vectors))
	for i, v := range vectors {
		dist[i] = SquaredL2(v, first)
	}
	for len(centroids) < k {
		var total float64
		for _, d := range dist {
			total += d
		}
		next := 0
		if total == 0 {
			// remaining points duplicate existing centroids
			next = rng.Intn(len(vectors))
		} else {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 {
					next = i
					break
				}
			}
		}
		c := cloneVector(vectors[next])
		centroids = append(centroids, c)
		for i, v := range vectors {
			if d := SquaredL2(v, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

func nearestCentroid(centroids [][]float32, v []float32) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := SquaredL2(v, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

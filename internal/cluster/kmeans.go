package cluster

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// KMeans is a seeded mini-batch k-means over sparse rows with dense
// centers. Each step samples BatchSize rows with replacement, assigns them
// to their nearest center, and moves each touched center to the running
// mean of everything it has absorbed so far.
type KMeans struct {
	K         int
	Seed      uint64
	BatchSize int
	MaxIter   int // passes over the data

	// MaxNoImprovement stops early after this many steps without a better
	// smoothed batch inertia.
	MaxNoImprovement int
}

// Fit partitions rows (of dimension dim) and returns each row's center
// index. k is capped at len(rows).
func (km KMeans) Fit(rows []Vector, dim int) []int {
	n := len(rows)
	if n == 0 {
		return nil
	}
	k := max(min(km.K, n), 1)
	batch := km.BatchSize
	if batch <= 0 || batch > n {
		batch = n
	}
	maxIter := km.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}
	patience := km.MaxNoImprovement
	if patience <= 0 {
		patience = 10
	}

	rng := rand.New(rand.NewPCG(km.Seed, km.Seed))
	sqNorms := make([]float64, n)
	for i, r := range rows {
		sqNorms[i] = r.SqNorm()
	}

	initIdx := make([]int, min(max(3*batch, 3*k), n))
	for i := range initIdx {
		initIdx[i] = rng.IntN(n)
	}
	centers := kmeansPlusPlus(rows, sqNorms, initIdx, k, dim, rng)

	weights := make([]float64, k)
	centerNorms := make([]float64, k)
	assigned := make([]int, batch)
	batchIdx := make([]int, batch)
	counts := make([]float64, k)

	steps := int(math.Ceil(float64(maxIter) * float64(n) / float64(batch)))
	alpha := math.Min(2*float64(batch)/float64(n+1), 1)
	ewa, best := math.NaN(), math.Inf(1)
	stale := 0

	for step := 0; step < steps; step++ {
		updateNorms(centers, centerNorms)

		var inertia float64
		for b := range batchIdx {
			i := rng.IntN(n)
			c, d := nearest(rows[i], sqNorms[i], centers, centerNorms)
			batchIdx[b], assigned[b] = i, c
			inertia += d
		}

		for c := range counts {
			counts[c] = 0
		}
		for _, c := range assigned {
			counts[c]++
		}
		for c := range centers {
			if counts[c] > 0 {
				floats.Scale(weights[c], centers[c])
			}
		}
		for b, i := range batchIdx {
			rows[i].AddTo(centers[assigned[b]], 1)
		}
		for c := range centers {
			if counts[c] > 0 {
				weights[c] += counts[c]
				floats.Scale(1/weights[c], centers[c])
			}
		}

		inertia /= float64(batch)
		if math.IsNaN(ewa) {
			ewa = inertia
		} else {
			ewa = ewa*(1-alpha) + inertia*alpha
		}
		if ewa < best {
			best, stale = ewa, 0
			continue
		}
		stale++
		if stale >= patience {
			break
		}
	}

	updateNorms(centers, centerNorms)
	labels := make([]int, n)
	for start := 0; start < n; start += batch {
		end := min(start+batch, n)
		for i := start; i < end; i++ {
			labels[i], _ = nearest(rows[i], sqNorms[i], centers, centerNorms)
		}
	}
	return labels
}

// kmeansPlusPlus seeds k centers from the candidate rows, choosing each new
// center among a few D²-weighted draws by the lowest resulting potential.
func kmeansPlusPlus(rows []Vector, sqNorms []float64, candidates []int, k, dim int, rng *rand.Rand) [][]float64 {
	trials := 2 + int(math.Log(float64(k)))
	centers := make([][]float64, 0, k)

	first := candidates[rng.IntN(len(candidates))]
	centers = append(centers, densify(rows[first], dim))

	closest := make([]float64, len(candidates))
	for j, i := range candidates {
		closest[j] = sqDist(rows[i], sqNorms[i], centers[0], floats.Dot(centers[0], centers[0]))
	}

	next := make([]float64, len(candidates))
	for len(centers) < k {
		potential := floats.Sum(closest)

		bestIdx, bestPot := -1, math.Inf(1)
		var bestDist []float64
		for t := 0; t < trials; t++ {
			j := sampleD2(closest, potential, rng)
			cand := densify(rows[candidates[j]], dim)
			candNorm := floats.Dot(cand, cand)
			var pot float64
			for m, i := range candidates {
				next[m] = math.Min(closest[m], sqDist(rows[i], sqNorms[i], cand, candNorm))
				pot += next[m]
			}
			if pot < bestPot {
				bestIdx, bestPot = j, pot
				bestDist = append(bestDist[:0], next...)
			}
		}

		centers = append(centers, densify(rows[candidates[bestIdx]], dim))
		copy(closest, bestDist)
	}
	return centers
}

// sampleD2 draws an index with probability proportional to weights. With
// zero total weight every index is equally likely.
func sampleD2(weights []float64, total float64, rng *rand.Rand) int {
	if total <= 0 {
		return rng.IntN(len(weights))
	}
	r := rng.Float64() * total
	for j, w := range weights {
		r -= w
		if r < 0 {
			return j
		}
	}
	return len(weights) - 1
}

func nearest(x Vector, xNorm float64, centers [][]float64, centerNorms []float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(x, xNorm, center, centerNorms[c]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func sqDist(x Vector, xNorm float64, center []float64, centerNorm float64) float64 {
	return math.Max(xNorm-2*x.Dot(center)+centerNorm, 0)
}

func updateNorms(centers [][]float64, norms []float64) {
	for c, center := range centers {
		norms[c] = floats.Dot(center, center)
	}
}

func densify(v Vector, dim int) []float64 {
	out := make([]float64, dim)
	v.AddTo(out, 1)
	return out
}

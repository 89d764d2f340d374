package overunder

import "math/rand"

// SyntheticSamples generates n plausible games whose total is the sum of both
// teams' scoring averages plus N(0, 1.5) noise. It stands in for history
// when none has been recorded yet.
func SyntheticSamples(n int, seed int64) []GameSample {
	rng := rand.New(rand.NewSource(seed))
	uniform := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	samples := make([]GameSample, n)
	for i := range samples {
		f := GameFeatures{
			HomeAvgRuns: uniform(3, 6),
			AwayAvgRuns: uniform(3, 6),
			HomeERA:     uniform(3, 5),
			AwayERA:     uniform(3, 5),
			HomeWHIP:    uniform(1.1, 1.4),
			AwayWHIP:    uniform(1.1, 1.4),
			TempCelsius: uniform(10, 35),
			WindKPH:     uniform(0, 30),
			IsDome:      rng.Float64() < 0.3,
		}
		samples[i] = GameSample{
			Features:  f,
			TotalRuns: f.HomeAvgRuns + f.AwayAvgRuns + rng.NormFloat64()*1.5,
		}
	}
	return samples
}

package overunder

// FeatureNames lists model inputs in vector order.
var FeatureNames = []string{
	"home_avg_runs",
	"away_avg_runs",
	"home_era",
	"away_era",
	"home_whip",
	"away_whip",
	"temp_celsius",
	"wind_kph",
	"is_dome",
}

// GameFeatures describes one game as the model sees it.
type GameFeatures struct {
	HomeAvgRuns float64 `json:"home_avg_runs"`
	AwayAvgRuns float64 `json:"away_avg_runs"`
	HomeERA     float64 `json:"home_era"`
	AwayERA     float64 `json:"away_era"`
	HomeWHIP    float64 `json:"home_whip"`
	AwayWHIP    float64 `json:"away_whip"`
	TempCelsius float64 `json:"temp_celsius"`
	WindKPH     float64 `json:"wind_kph"`
	IsDome      bool    `json:"is_dome"`
}

// DefaultGameFeatures is a league-average game in mild weather outdoors.
func DefaultGameFeatures() GameFeatures {
	return GameFeatures{
		HomeAvgRuns: 4.0,
		AwayAvgRuns: 4.0,
		HomeERA:     4.0,
		AwayERA:     4.0,
		HomeWHIP:    1.3,
		AwayWHIP:    1.3,
		TempCelsius: 20,
		WindKPH:     0,
	}
}

// FeaturesFromMap builds features from loosely keyed input, filling any
// missing key with its default.
func FeaturesFromMap(m map[string]float64) GameFeatures {
	f := DefaultGameFeatures()
	fields := []*float64{
		&f.HomeAvgRuns, &f.AwayAvgRuns, &f.HomeERA, &f.AwayERA,
		&f.HomeWHIP, &f.AwayWHIP, &f.TempCelsius, &f.WindKPH,
	}
	for i, dst := range fields {
		if v, ok := m[FeatureNames[i]]; ok {
			*dst = v
		}
	}
	if v, ok := m["is_dome"]; ok {
		f.IsDome = v != 0
	}
	return f
}

// Vector returns the features in FeatureNames order.
func (f GameFeatures) Vector() []float64 {
	dome := 0.0
	if f.IsDome {
		dome = 1
	}
	return []float64{
		f.HomeAvgRuns, f.AwayAvgRuns,
		f.HomeERA, f.AwayERA,
		f.HomeWHIP, f.AwayWHIP,
		f.TempCelsius, f.WindKPH, dome,
	}
}

// GameSample is a finished game used for training.
type GameSample struct {
	Features  GameFeatures `json:"features"`
	TotalRuns float64      `json:"total_runs"`
}

package route

// Mesh metric names.
const (
	MetricBetti       = "betti"
	MetricLambdaGap   = "lambda_gap"
	MetricPersistence = "persistence"
)

// Mesh score weights. The lambda gap dominates deliberately: spectral
// separation is the strongest topology signal the selector has.
const (
	weightBetti       = 0.10
	weightLambdaGap   = 0.70
	weightPersistence = 0.20
)

// MeshMetrics carries the topology metrics a route derivation scores.
// Absence of a key is meaningful: strict scoring rejects it, lenient
// scoring treats it as 0.
type MeshMetrics map[string]float64

// requiredMetrics lists the metrics strict scoring demands, in reporting
// order.
var requiredMetrics = []string{MetricBetti, MetricLambdaGap, MetricPersistence}

// Score computes the weighted mesh score in strict mode: every required
// metric must be present. This is the scoring used by route derivation.
func Score(seed string, m MeshMetrics) (float64, error) {
	for _, name := range requiredMetrics {
		if _, ok := m[name]; !ok {
			return 0, newMissingMetricError(seed, name)
		}
	}
	return scoreOf(m), nil
}

// ScoreLenient computes the weighted mesh score treating absent metrics as
// 0.0. Kept for backward-compatible score display; derivation entry points
// must use Score.
func ScoreLenient(m MeshMetrics) float64 {
	return scoreOf(m)
}

func scoreOf(m MeshMetrics) float64 {
	return weightBetti*m[MetricBetti] +
		weightLambdaGap*m[MetricLambdaGap] +
		weightPersistence*m[MetricPersistence]
}

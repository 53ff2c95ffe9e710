package motif

// Neutral is the rescaled value of a zero log-odds score.
const Neutral = 50.0

// Rescale maps a raw score onto 0-100 so that motifs of different width and
// information content share one axis. Negative scores map linearly from
// [minScore, 0) onto [0, 50), non-negative scores from [0, maxScore] onto
// [50, 100]. The result is not clamped.
func Rescale(score, minScore, maxScore float64) float64 {
	if score < 0 {
		return Neutral * (score - minScore) / (0 - minScore)
	}
	if maxScore == 0 {
		return Neutral
	}
	return Neutral + Neutral*score/maxScore
}

package keyword

import "github.com/sells-group/keyword-cli/internal/model"

// RescaleDifficulty returns copies of records with difficulty on a 0-100
// scale: values in [0,1] are treated as fractions and multiplied by 100,
// then everything is clamped into [0,100]. Absent difficulty is untouched.
func RescaleDifficulty(records []model.KeywordRecord) []model.KeywordRecord {
	out := make([]model.KeywordRecord, len(records))
	for i, r := range records {
		if r.Difficulty == nil {
			out[i] = r
			continue
		}
		kd := *r.Difficulty
		if kd >= 0 && kd <= 1 {
			kd *= 100
		}
		out[i] = r.WithDifficulty(model.Float64(clamp(kd, 0, 100)))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

package normalize

import "math"

// Rupiah converts a nullable float64 amount to whole rupiah.
// Uses math.Round to avoid truncation bias; nil becomes 0.
func Rupiah(v *float64) int64 {
	if v == nil {
		return 0
	}
	return int64(math.Round(*v))
}

package dstr

import (
	"fmt"
	"math"
	"strconv"
)

const (
	// MaxPrecision is the largest number of digits after the decimal point
	// supported by the decimal rendering.
	MaxPrecision = 10
	// DefaultPrecision is the precision adapters use unless configured.
	DefaultPrecision = 6
)

func formatInt(dst []byte, n int64) []byte {
	return strconv.AppendInt(dst, n, 10)
}

// formatDecimal renders f in fixed-point notation. The decimal is the one
// nearest to the exact binary value of f, ties round to even. Infinities and
// NaN render the way C's printf does ("inf", "-inf", "nan").
func formatDecimal(dst []byte, f float64, precision int) ([]byte, error) {
	if precision < 0 || precision > MaxPrecision {
		return dst, fmt.Errorf("%w: %d not in [0, %d]", ErrPrecision, precision, MaxPrecision)
	}

	switch {
	case math.IsNaN(f):
		return append(dst, "nan"...), nil
	case math.IsInf(f, 1):
		return append(dst, "inf"...), nil
	case math.IsInf(f, -1):
		return append(dst, "-inf"...), nil
	}
	return strconv.AppendFloat(dst, f, 'f', precision, 64), nil
}

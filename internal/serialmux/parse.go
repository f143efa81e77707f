package serialmux

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSampleLine parses one "X Y Z" sample line from the IMU stream.
// The device emits whitespace-delimited decimal values; anything else
// (boot banners, command echoes) is a parse error the caller counts and
// drops.
func ParseSampleLine(line string) (x, y, z float64, err error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) != 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 fields, got %d in %q", len(fields), line)
	}

	vals := make([]float64, 3)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("field %d of %q: %v", i+1, line, err)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

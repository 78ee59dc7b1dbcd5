package kvrpc

import (
	"math"
	"strconv"
	"time"
)

// formatSeconds arredonda para cima: Retry-After só aceita segundos inteiros, mínimo 1.
func formatSeconds(d time.Duration) string {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

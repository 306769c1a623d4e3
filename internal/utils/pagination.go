// Package utils holds small parsing helpers shared by the HTTP layer.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or not a
// number.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// AtoiClamp parses s like AtoiDefault and bounds the result to [lo, hi].
//
//	utils.AtoiClamp("500", 20, 1, 100) // 100
//	utils.AtoiClamp("", 20, 1, 100)    // 20
//	utils.AtoiClamp("-3", 20, 1, 100)  // 1
func AtoiClamp(s string, def, lo, hi int) int {
	return min(max(AtoiDefault(s, def), lo), hi)
}

// Package admission provides the shared primitives used across the library:
// context plumbing for loggers and tracers, error shapes, and small helpers.
package admission

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
)

var uuidPathRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// IsNilOrEmpty returns a boolean indicating if a *string is nil or empty.
// It's use TrimSpace so, a string "  " and "" will be considered empty.
func IsNilOrEmpty(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == "" || strings.TrimSpace(*s) == "null" || strings.TrimSpace(*s) == "nil"
}

// Contains checks if an item is in a slice. This function uses type parameters
// to work with any slice type.
func Contains[T comparable](slice []T, item T) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}

	return false
}

// SafeIntToUint64 safe mode to converter int to uint64
func SafeIntToUint64(val int) uint64 {
	if val < 0 {
		return 1
	}

	return uint64(val)
}

// StructToJSONString convert a struct to json string
func StructToJSONString(s any) (string, error) {
	jsonByte, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	return string(jsonByte), nil
}

// ReplaceUUIDWithPlaceholder keeps span names low cardinality by replacing
// UUID path segments with ":id".
func ReplaceUUIDWithPlaceholder(path string) string {
	return uuidPathRegex.ReplaceAllString(path, ":id")
}

// SafeInt64ToInt converts int64 to int, clamping at the platform bounds.
func SafeInt64ToInt(val int64) int {
	if val > int64(math.MaxInt) {
		return math.MaxInt
	}

	if val < int64(math.MinInt) {
		return math.MinInt
	}

	return int(val)
}

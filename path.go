package noproto

import (
	"strconv"

	"github.com/kaptinlin/jsonpointer"
)

// Path is a sequence of path segments: field/key names for struct and map
// nodes, base-10 integers for list and tuple nodes, per spec.md §6.3.
type Path []string

func parseListIndex(seg string) (int, error) {
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0, &PathTypeError{Segment: seg, Reason: "expected a non-negative integer"}
	}
	if n > 255 {
		return 0, &ListIndexError{Index: n, Reason: "list index exceeds 255"}
	}
	return n, nil
}

func parseTupleIndex(seg string, count int) (int, error) {
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0, &PathTypeError{Segment: seg, Reason: "expected a non-negative integer"}
	}
	if n >= count {
		return 0, &PathTypeError{Segment: seg, Reason: "tuple index out of declared arity"}
	}
	return n, nil
}

// FormatPath renders a path the way a JSON Pointer location would, used in
// error messages so callers see "#/users/3/name" instead of a raw slice —
// the same helper the teacher's schema validator uses for keyword
// locations (github.com/kaptinlin/jsonpointer.Format).
func FormatPath(path []string) string {
	if len(path) == 0 {
		return "#"
	}
	return "#" + jsonpointer.Format(path...)
}

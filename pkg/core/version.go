// pkg/core/version.go
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// CompareVersions compares two dotted numeric version strings segment
// by segment. Missing trailing segments are treated as zero, so
// "1.2" == "1.2.0". Returns -1, 0 or 1. Non-numeric segments (e.g.
// pre-release suffixes) are unsupported input and return an error.
func CompareVersions(a, b string) (int, error) {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		av, err := versionSegment(as, i, a)
		if err != nil {
			return 0, err
		}
		bv, err := versionSegment(bs, i, b)
		if err != nil {
			return 0, err
		}

		if av < bv {
			return -1, nil
		}
		if av > bv {
			return 1, nil
		}
	}

	return 0, nil
}

func versionSegment(segments []string, i int, version string) (int, error) {
	if i >= len(segments) {
		return 0, nil
	}
	v, err := strconv.Atoi(segments[i])
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	return v, nil
}

package genome

import (
	"fmt"
	"strings"
)

// Release is a genome build.
type Release int

const (
	Unknown Release = iota
	GRCh37
	GRCh38
)

func (r Release) String() string {
	switch r {
	case GRCh37:
		return "grch37"
	case GRCh38:
		return "grch38"
	default:
		return "unknown"
	}
}

// ParseRelease accepts the usual aliases, case-insensitively.
func ParseRelease(text string) (Release, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "grch37", "hg19", "b37":
		return GRCh37, nil
	case "grch38", "hg38":
		return GRCh38, nil
	default:
		return Unknown, fmt.Errorf("unable to parse genome release %q", text)
	}
}

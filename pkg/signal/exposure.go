package signal

import (
	"strings"

	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	"github.com/sbomtools/vulnrank/pkg/model"
)

// unknownExposure is used when an advisory carries no parseable CVSS
// vector: neither clearly network-exposed nor clearly local.
const unknownExposure = 0.5

// Attack-vector exposure mapping. Network access dominates but is held
// below 1.0 so the other fusion categories keep breathing room.
var exposureByAV = map[string]float64{
	"N": 0.85, // Network
	"A": 0.6,  // Adjacent
	"L": 0.3,  // Local
	"P": 0.1,  // Physical
}

// ExposureIndex derives a [0,1] exposure value from a CVSS v3 vector's
// attack-vector metric. It is reporting metadata on score records and
// never participates in fusion weighting.
func ExposureIndex(vector string) float64 {
	av, ok := attackVector(vector)
	if !ok {
		return unknownExposure
	}
	if e, ok := exposureByAV[av]; ok {
		return e
	}
	return unknownExposure
}

// BaseScore computes the CVSS base score from a vector, for advisories
// that carry a vector but no numeric severity.
func BaseScore(vector string) model.Score {
	switch {
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		v, err := gocvss31.ParseVector(vector)
		if err != nil {
			return model.Score{}
		}
		return model.KnownScore(v.BaseScore())
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		v, err := gocvss30.ParseVector(vector)
		if err != nil {
			return model.Score{}
		}
		return model.KnownScore(v.BaseScore())
	default:
		return model.Score{}
	}
}

func attackVector(vector string) (string, bool) {
	switch {
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		v, err := gocvss31.ParseVector(vector)
		if err != nil {
			return "", false
		}
		av, err := v.Get("AV")
		if err != nil {
			return "", false
		}
		return av, true
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		v, err := gocvss30.ParseVector(vector)
		if err != nil {
			return "", false
		}
		av, err := v.Get("AV")
		if err != nil {
			return "", false
		}
		return av, true
	default:
		return "", false
	}
}

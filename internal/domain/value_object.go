// internal/domain/value_object.go
package domain

// Value objects: immutable, identity-less, compared by the equality of all
// their fields. Both types here are plain comparable values; construction
// goes through validating factories and instances are passed by value.

// Classification holds CIA triad scores. Each score ranges from 0 (not
// assessed) to 4 (critical).
type Classification struct {
	Confidentiality int `json:"confidentiality"`
	Integrity       int `json:"integrity"`
	Availability    int `json:"availability"`
}

const maxClassificationScore = 4

func NewClassification(confidentiality, integrity, availability int) (Classification, error) {
	for _, s := range []struct {
		field string
		value int
	}{
		{"confidentiality", confidentiality},
		{"integrity", integrity},
		{"availability", availability},
	} {
		if s.value < 0 || s.value > maxClassificationScore {
			return Classification{}, &ValidationError{Field: s.field, Reason: "score must be between 0 and 4"}
		}
	}
	return Classification{
		Confidentiality: confidentiality,
		Integrity:       integrity,
		Availability:    availability,
	}, nil
}

// Overall returns the highest of the three scores, the usual worst-case
// reading of a CIA classification.
func (c Classification) Overall() int {
	overall := c.Confidentiality
	if c.Integrity > overall {
		overall = c.Integrity
	}
	if c.Availability > overall {
		overall = c.Availability
	}
	return overall
}

// EffectivenessRating grades how well a control performs, from 1 (ad hoc)
// to 5 (optimized).
type EffectivenessRating int

func NewEffectivenessRating(v int) (EffectivenessRating, error) {
	if v < 1 || v > 5 {
		return 0, &ValidationError{Field: "effectiveness rating", Reason: "must be between 1 and 5"}
	}
	return EffectivenessRating(v), nil
}

func (r EffectivenessRating) Int() int { return int(r) }

package voice

import (
	"strings"

	"github.com/parlolabs/parlo-core/internal/language"
)

// Voice describes one synthesis voice from the playback engine.
type Voice struct {
	ID   string `json:"id"`
	Lang string `json:"lang"`
	Name string `json:"name"`
}

// Preference narrows voice selection by the speaker gender the user
// asked for.
type Preference string

const (
	PreferAuto   Preference = "auto"
	PreferMale   Preference = "male"
	PreferFemale Preference = "female"
)

// ParsePreference validates a preference string, defaulting to auto.
func ParsePreference(s string) Preference {
	switch Preference(strings.ToLower(s)) {
	case PreferMale:
		return PreferMale
	case PreferFemale:
		return PreferFemale
	default:
		return PreferAuto
	}
}

// Select picks a voice for the target language from the snapshot. It is
// a pure function: candidates are voices whose tag equals the target
// exactly or starts with its short subtag; a non-auto preference
// sub-filters candidates by a case-insensitive name match; the first
// element of whichever filter survives wins, in snapshot order. The
// second return is false when no candidate exists, in which case the
// playback engine falls back to its own default voice.
func Select(target string, pref Preference, snapshot []Voice) (Voice, bool) {
	short := language.ShortSubtag(target)

	var candidates []Voice
	for _, v := range snapshot {
		if v.Lang == target || strings.HasPrefix(v.Lang, short) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return Voice{}, false
	}

	if pref != PreferAuto {
		needle := string(pref)
		for _, v := range candidates {
			if strings.Contains(strings.ToLower(v.Name), needle) {
				return v, true
			}
		}
	}
	return candidates[0], true
}

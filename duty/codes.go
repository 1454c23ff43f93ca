package duty

import "strings"

// =============================================================================
// DUTY CODE VOCABULARY - Static code <-> type mapping
// =============================================================================

// Roster exports label non-flight days with short alphanumeric codes. The
// vocabulary is a fixed table, not scattered string matching: classification
// consults this map and nothing else.
var codeVocabulary = map[string]Type{
	"ASBY": TypeStandbyAirport,
	"SBY":  TypeStandbyHome,
	"HSBY": TypeStandbyHome,
	"REC":  TypeRecurrentTraining,
	"SEP":  TypeRecurrentTraining,
	"TRG":  TypeRecurrentTraining,
	"BP":   TypeBusinessPromotion,
	"OFF":  TypeDayOff,
	"X":    TypeDayOff,
	"AL":   TypeAnnualLeave,
	"LVE":  TypeAnnualLeave,
}

// TypeForCode resolves a roster duty code to a duty type.
// Matching is case-insensitive and tolerates a numeric suffix on training
// codes (REC1, SEP2) since airlines number recurrent modules.
func TypeForCode(code string) (Type, bool) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if t, ok := codeVocabulary[c]; ok {
		return t, true
	}
	// Prefix match for numbered training variants only.
	for _, prefix := range []string{"REC", "SEP", "TRG"} {
		if strings.HasPrefix(c, prefix) && len(c) > len(prefix) {
			return TypeRecurrentTraining, true
		}
	}
	return "", false
}

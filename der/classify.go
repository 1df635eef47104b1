package der

import "slices"

// Classify labels one interval. With both sides active, a single system
// speaker mapped onto any active reference speaker makes the interval OK.
func Classify(iv ErrorInterval, mapping map[string]string) ErrorType {
	hasRef, hasSys := len(iv.RefSpeakers) > 0, len(iv.SysSpeakers) > 0
	switch {
	case hasRef && !hasSys:
		return MS
	case !hasRef && hasSys:
		return FA
	case !hasRef:
		return OK
	}
	for _, s := range iv.SysSpeakers {
		if r, ok := mapping[s]; ok && slices.Contains(iv.RefSpeakers, r) {
			return OK
		}
	}
	return SER
}

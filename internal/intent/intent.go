// Package intent maps free-form caregiver answers, spoken Arabic or typed
// English, onto assessment values and decision responses. Matching is keyword
// based and deterministic.
package intent

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/danielpatrickdp/laborguide/internal/decision"
	"github.com/danielpatrickdp/laborguide/internal/state"
)

// #region normalize
var arabicDigits = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

func normalize(transcript string) string {
	return arabicDigits.Replace(strings.ToLower(strings.TrimSpace(transcript)))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// firstNumber returns the first run of ASCII digits in s.
func firstNumber(s string) (int, bool) {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(s[start:i])
			return n, err == nil
		}
	}
	if start < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[start:])
	return n, err == nil
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// #endregion

// #region assessment
// MatchMonths maps an answer to months pregnant, clamped to 6..9.
func MatchMonths(transcript string) (int, bool) {
	t := normalize(transcript)
	if t == "" {
		return 0, false
	}
	if n, ok := firstNumber(t); ok {
		switch {
		case n < 6:
			return 6, true
		case n > 9:
			return 9, true
		default:
			return n, true
		}
	}
	for _, m := range monthKeywords {
		if containsAny(t, m.keywords) {
			return m.months, true
		}
	}
	return 0, false
}

// MatchContractionMinutes buckets an answer about contraction spacing into a
// representative number of minutes. Unrecognized answers fall in the middle.
func MatchContractionMinutes(transcript string) int {
	t := normalize(transcript)
	if containsAny(t, underMinuteKeywords) {
		return 1
	}
	n, ok := firstNumber(t)
	if !ok {
		n, ok = spelledNumber(t)
	}
	if ok {
		switch {
		case n <= 2:
			return 2
		case n <= 5:
			return 4
		case n >= 10:
			return 12
		default:
			return 7
		}
	}
	switch {
	case containsAny(t, moreKeywords):
		return 12
	case containsAny(t, minuteKeywords):
		return 2
	}
	return 7
}

// spelledNumber returns the first English number word in s.
func spelledNumber(s string) (int, bool) {
	for _, w := range words(s) {
		if n, ok := numberWords[w]; ok {
			return n, true
		}
	}
	return 0, false
}

// MatchYesNo reports whether the answer is affirmative. ok is false when
// neither reading matches. Affirmative keywords take precedence.
func MatchYesNo(transcript string) (yes bool, ok bool) {
	t := normalize(transcript)
	if containsAny(t, yesKeywords) {
		return true, true
	}
	ws := words(t)
	for _, w := range ws {
		if yesWords[w] {
			return true, true
		}
	}
	if containsAny(t, noKeywords) {
		return false, true
	}
	for _, w := range ws {
		if noWords[w] {
			return false, true
		}
	}
	return false, false
}

// #endregion

// #region decisions
// MatchResponse maps an answer to a response for decision id. Presentation
// and bleeding always resolve, falling back to other and normal. Breech
// keywords win over head so a mixed answer resolves toward escalation. The yes/no
// style decisions resolve only when the answer is recognizable.
func MatchResponse(id state.DecisionID, transcript string) (decision.Response, bool) {
	t := normalize(transcript)

	switch id {
	case state.DecisionPresentation:
		switch {
		case containsAny(t, unknownKeywords):
			return decision.Unknown, true
		case containsAny(t, breechKeywords):
			return decision.Breech, true
		case containsAny(t, headKeywords):
			return decision.Head, true
		}
		return decision.Other, true

	case state.DecisionBleeding:
		if containsAny(t, severeKeywords) {
			return decision.Severe, true
		}
		return decision.Normal, true

	case state.DecisionCrowning:
		if containsAny(t, stuckKeywords) {
			return decision.Stuck, true
		}
		yes, ok := MatchYesNo(t)
		if !ok {
			return "", false
		}
		if yes {
			return decision.Yes, true
		}
		return decision.Stuck, true

	case state.DecisionBabyBreathing, state.DecisionPlacenta:
		yes, ok := MatchYesNo(t)
		if !ok {
			return "", false
		}
		if yes {
			return decision.Yes, true
		}
		return decision.No, true
	}
	return "", false
}

// #endregion

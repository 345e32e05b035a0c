package intent

// #region keywords

var yesKeywords = []string{"نعم", "ايوه", "اه", "بدي", "حاسة"}

var noKeywords = []string{"لا", "لأ", "ما في", "خفيف"}

var yesWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "ok": true, "okay": true, "sure": true,
}

var noWords = map[string]bool{
	"no": true, "n": true, "nope": true, "not": true, "none": true,
}

var headKeywords = []string{"رأس", "راس", "head"}

var breechKeywords = []string{"مؤخرة", "breech", "bottom", "buttock", "feet", "foot"}

var unknownKeywords = []string{"ما بعرف", "مش عارفة", "don't know", "dont know", "not sure", "unknown"}

var severeKeywords = []string{"شديد", "كثير", "severe", "heavy", "a lot", "soaking"}

var stuckKeywords = []string{"عالق", "stuck", "not coming", "no progress"}

var underMinuteKeywords = []string{"أقل من دقيقة", "less than a minute", "under a minute"}

var moreKeywords = []string{"أكثر", "more", "over"}

// minuteKeywords are the one-or-two-minute phrasings that carry no number.
var minuteKeywords = []string{"دقيقتين", "دقيقة", "a minute", "every minute"}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"thirty": 30,
}

var monthKeywords = []struct {
	months   int
	keywords []string
}{
	{9, []string{"تاسع", "nine", "ninth"}},
	{8, []string{"ثامن", "eight", "eighth"}},
	{7, []string{"سابع", "seven", "seventh"}},
	{6, []string{"أقل", "six", "sixth", "less"}},
}

// #endregion

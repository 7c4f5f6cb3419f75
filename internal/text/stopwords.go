package text

import "strings"

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// ko
		"그", "이", "저", "수", "등", "및", "가", "을", "를", "에", "의", "도", "더",
		"것", "때", "위", "통해", "대한", "대해", "또한", "그리고", "하지만", "있다", "없다",
		"한다", "된다", "이다", "경우", "다른", "같은", "여러", "각", "중",
		// en
		"the", "and", "is", "in", "to", "of", "for", "with", "on", "that",
		"a", "an", "are", "be", "by", "as", "at", "or", "it", "this", "from", "was", "were",
	} {
		stopwords[w] = struct{}{}
	}
}

// IsStopword reports whether w (case-insensitive for Latin) is a stopword.
func IsStopword(w string) bool {
	_, ok := stopwords[strings.ToLower(w)]
	return ok
}

// TrimPunct strips leading and trailing punctuation runes.
func TrimPunct(w string) string {
	return strings.TrimFunc(w, func(r rune) bool { return ClassOf(r) == Punct })
}

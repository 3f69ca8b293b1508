package textproc

// DefaultStopwords is the Korean stopword list applied to every answer.
var DefaultStopwords = []string{
	"이", "그", "저", "을", "를", "은", "는", "이다", "있다", "없다", "에", "에서",
	"와", "과", "로", "으로", "의", "도", "에게", "한테", "그리고", "그러나",
	"그래서", "하지만", "또한", "즉", "나", "너", "우리", "당신", "저희",
	"그녀", "이것", "그것", "저것", "어떤", "이러한", "그런", "아주", "매우",
	"보다", "보다도", "그냥", "무조건",
}

// SetStopwordFilter is a StopwordFilter backed by a fixed set.
type SetStopwordFilter struct {
	words map[string]struct{}
}

// NewStopwordFilter builds a filter from a word list
func NewStopwordFilter(words []string) *SetStopwordFilter {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return &SetStopwordFilter{words: set}
}

// FilterStopwords implements StopwordFilter. Order is preserved.
func (f *SetStopwordFilter) FilterStopwords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, stop := f.words[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

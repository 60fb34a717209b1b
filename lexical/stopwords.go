package lexical

// StopSet is a set of tokens ignored during keyword extraction.
type StopSet map[string]bool

// NewStopSet builds a StopSet from words.
func NewStopSet(words ...string) StopSet {
	s := make(StopSet, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}

// Union returns a new StopSet containing the words of s and other.
func (s StopSet) Union(other StopSet) StopSet {
	out := make(StopSet, len(s)+len(other))
	for w := range s {
		out[w] = true
	}
	for w := range other {
		out[w] = true
	}
	return out
}

// Contains reports whether word is a stopword.
func (s StopSet) Contains(word string) bool {
	return s[word]
}

var englishStopWords = NewStopSet(
	"the", "a", "an", "be", "is", "are", "was", "were", "to", "of", "and",
	"in", "that", "have", "has", "it", "for", "not", "on", "with", "as",
	"you", "do", "does", "at", "this", "but", "by", "from", "or", "what",
	"which", "how", "why", "when", "where", "who", "its", "their", "there",
)

// BaseStopWords is used by the reranker.
var BaseStopWords = NewStopSet(
	"的", "是", "在", "有", "和", "与", "或", "但", "而", "如果", "因为",
	"所以", "什么", "怎么", "为什么", "如何", "主要", "业务",
).Union(englishStopWords)

// ExtendedStopWords is used by the smart filter and the source filter.
var ExtendedStopWords = BaseStopWords.Union(NewStopSet(
	"这个", "那个", "这些", "那些", "一个", "一些", "可以", "应该", "能够",
	"需要", "必须", "可能", "也许", "大概", "大约", "左右", "根据", "显示",
	"表明", "说明", "指出", "提到", "包括", "涉及", "关于", "对于",
))

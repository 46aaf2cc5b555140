package wordfreq

// stopWords are dropped before counting. Tokens are already lowercased and
// accent-folded, and apostrophes split words, so contractions appear as
// their stems ("don", "isn").
var stopWords = map[string]struct{}{
	"about": {}, "above": {}, "after": {}, "again": {}, "against": {}, "all": {},
	"almost": {}, "also": {}, "although": {}, "always": {}, "am": {}, "among": {},
	"an": {}, "and": {}, "another": {}, "any": {}, "anyone": {}, "anything": {},
	"are": {}, "around": {}, "as": {}, "at": {},

	"be": {}, "became": {}, "because": {}, "become": {}, "been": {}, "before": {},
	"being": {}, "below": {}, "between": {}, "both": {}, "but": {}, "by": {},

	"can": {}, "cannot": {}, "could": {}, "couldn": {},

	"did": {}, "didn": {}, "do": {}, "does": {}, "doesn": {}, "doing": {},
	"don": {}, "done": {}, "down": {}, "during": {},

	"each": {}, "either": {}, "else": {}, "enough": {}, "etc": {}, "even": {},
	"ever": {}, "every": {}, "everyone": {}, "everything": {},

	"few": {}, "for": {}, "from": {}, "further": {},

	"had": {}, "hadn": {}, "has": {}, "hasn": {}, "have": {}, "haven": {},
	"having": {}, "he": {}, "her": {}, "here": {}, "hers": {}, "herself": {},
	"him": {}, "himself": {}, "his": {}, "how": {}, "however": {},

	"if": {}, "in": {}, "into": {}, "is": {}, "isn": {}, "it": {}, "its": {},
	"itself": {},

	"just": {},

	"less": {}, "let": {}, "like": {}, "ll": {},

	"made": {}, "make": {}, "many": {}, "may": {}, "me": {}, "might": {},
	"more": {}, "most": {}, "much": {}, "must": {}, "my": {}, "myself": {},

	"neither": {}, "never": {}, "no": {}, "nor": {}, "not": {}, "nothing": {},
	"now": {},

	"of": {}, "off": {}, "often": {}, "on": {}, "once": {}, "only": {}, "or": {},
	"other": {}, "others": {}, "our": {}, "ours": {}, "ourselves": {}, "out": {},
	"over": {}, "own": {},

	"per": {}, "please": {},

	"re": {}, "same": {}, "she": {}, "should": {}, "shouldn": {}, "since": {},
	"so": {}, "some": {}, "someone": {}, "something": {}, "still": {}, "such": {},

	"than": {}, "that": {}, "the": {}, "their": {}, "theirs": {}, "them": {},
	"themselves": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "to": {}, "too": {}, "toward": {},
	"towards": {},

	"under": {}, "until": {}, "up": {}, "upon": {}, "us": {},

	"ve": {}, "very": {}, "via": {},

	"was": {}, "wasn": {}, "we": {}, "were": {}, "weren": {}, "what": {},
	"when": {}, "where": {}, "whether": {}, "which": {}, "while": {}, "who": {},
	"whom": {}, "whose": {}, "why": {}, "will": {}, "with": {}, "within": {},
	"without": {}, "won": {}, "would": {}, "wouldn": {},

	"yet": {}, "you": {}, "your": {}, "yours": {}, "yourself": {}, "yourselves": {},
}

// IsStopWord reports whether a normalised token is ignored when counting.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

package heuristic

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// POS is the part-of-speech class assigned to a transcript token.
type POS uint8

const (
	Other POS = iota
	Noun
	ProperNoun
	Verb
	Adjective
	Adverb
	Determiner
	Preposition
	Auxiliary
	Modal
	Conjunction
	Pronoun
	Punctuation
)

// Tagger classifies transcript tokens with a fixed lexicon, suffix
// inference for unknown words, and a context pass over neighbouring tags.
// It exists to tell proper-noun runs apart from sentence-start
// capitalization, which a plain capital-letter scan cannot do.
type Tagger struct {
	lexicon map[string]POS
}

// NewTagger creates a tagger with the default lexicon.
func NewTagger() *Tagger {
	t := &Tagger{lexicon: make(map[string]POS, 512)}
	t.loadLexicon()
	return t
}

// Tag classifies every token. Pass one assigns baseline tags from the
// lexicon or suffix inference; pass two corrects tags from their left and
// right context.
func (t *Tagger) Tag(words []string) []POS {
	tags := make([]POS, len(words))
	for i, word := range words {
		tags[i] = t.baseline(word)
	}

	for i := range tags {
		word := words[i]
		tag := tags[i]

		// Sentence start reads as following punctuation.
		prev := Punctuation
		prevWord := ""
		if i > 0 {
			prev = tags[i-1]
			prevWord = words[i-1]
		}
		nextWord := ""
		if i+1 < len(words) {
			nextWord = words[i+1]
		}

		// Capitalized lexicon words glued to another capitalized word are
		// part of a name: "Broken Bridge", "Gilded Griffin Inn".
		if (tag == Noun || tag == Adjective || tag == Verb) && isCapitalized(word) &&
			(isCapitalized(prevWord) || isCapitalized(nextWord)) {
			tags[i] = ProperNoun
			continue
		}

		// Sentence-start adverbs keep their capital letter; without this
		// "Thankfully Bram survived" would count Thankfully as a name.
		if tag == ProperNoun && prev == Punctuation && strings.HasSuffix(fastLower(word), "ly") {
			tags[i] = Adverb
			continue
		}

		// "the attack", "a fast strike": a determiner or adjective in
		// front turns an ambiguous verb reading into a noun.
		if (prev == Determiner || prev == Adjective) && tag == Verb {
			tags[i] = Noun
			continue
		}

		// "can parley", "will scout": a modal in front turns a noun
		// reading into a verb.
		if prev == Modal && tag == Noun {
			tags[i] = Verb
			continue
		}

		// "to parley": infinitive marker.
		if strings.EqualFold(prevWord, "to") && tag == Noun {
			tags[i] = Verb
			continue
		}

		// "word of honor": a preposition object reads as a noun.
		if strings.EqualFold(prevWord, "of") && tag == Verb {
			tags[i] = Noun
		}
	}
	return tags
}

func (t *Tagger) baseline(word string) POS {
	if pos, ok := t.lexicon[fastLower(word)]; ok {
		return pos
	}
	return inferPOS(word)
}

// inferPOS guesses a tag for words outside the lexicon. Capitalization wins
// over suffixes so invented names like Greyfall or Gilded stay proper nouns.
func inferPOS(word string) POS {
	r, _ := utf8.DecodeRuneInString(word)
	if utf8.RuneCountInString(word) == 1 && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return Punctuation
	}
	if unicode.IsUpper(r) {
		return ProperNoun
	}

	lower := fastLower(word)
	switch {
	case strings.HasSuffix(lower, "ly"):
		return Adverb
	case strings.HasSuffix(lower, "ing"), strings.HasSuffix(lower, "ed"), strings.HasSuffix(lower, "en"):
		return Verb
	case strings.HasSuffix(lower, "ness"), strings.HasSuffix(lower, "tion"),
		strings.HasSuffix(lower, "ment"), strings.HasSuffix(lower, "ity"),
		strings.HasSuffix(lower, "er"), strings.HasSuffix(lower, "or"):
		return Noun
	case strings.HasSuffix(lower, "ful"), strings.HasSuffix(lower, "less"),
		strings.HasSuffix(lower, "ous"), strings.HasSuffix(lower, "ive"),
		strings.HasSuffix(lower, "able"), strings.HasSuffix(lower, "ible"):
		return Adjective
	}
	return Noun
}

// tokenize splits transcript text into word and punctuation tokens.
// Apostrophes and hyphens stay inside words only between letters, so
// "Vex's" and "well-worn" hold together while a trailing quote becomes its
// own token. Punctuation tokens matter: they are what keeps a name at the
// end of one sentence from running into a name at the start of the next.
func tokenize(text string) []string {
	runes := []rune(text)
	var tokens []string
	var word []rune

	flush := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word = append(word, r)
		case (r == '\'' || r == '-') && len(word) > 0 &&
			i+1 < len(runes) && (unicode.IsLetter(runes[i+1]) || unicode.IsDigit(runes[i+1])):
			word = append(word, r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}

// properRuns joins adjacent proper-noun tokens into candidate names.
func properRuns(words []string, tags []POS) []string {
	var runs []string
	var current []string
	for i, tag := range tags {
		if tag == ProperNoun {
			current = append(current, words[i])
			continue
		}
		if len(current) > 0 {
			runs = append(runs, strings.Join(current, " "))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		runs = append(runs, strings.Join(current, " "))
	}
	return runs
}

func isCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// fastLower returns the string unchanged when it holds no ASCII uppercase,
// avoiding an allocation for the common lowercase token.
func fastLower(s string) string {
	for i := 0; i < len(s); i++ {
		if 'A' <= s[i] && s[i] <= 'Z' {
			return strings.ToLower(s)
		}
	}
	return s
}

func (t *Tagger) loadLexicon() {
	add := func(pos POS, words ...string) {
		for _, w := range words {
			t.lexicon[w] = pos
		}
	}

	add(Determiner, "the", "a", "an", "this", "that", "these", "those", "my",
		"your", "his", "her", "its", "our", "their", "some", "any", "no",
		"every", "each", "all", "both", "few", "many", "much", "most",
		"other", "another")

	add(Preposition, "in", "on", "at", "to", "for", "with", "by", "from",
		"of", "about", "into", "through", "during", "before", "after",
		"above", "below", "between", "under", "over", "against", "among",
		"around", "behind", "beside", "beyond", "near", "toward", "towards",
		"upon", "within", "without", "across", "along", "inside", "outside",
		"throughout", "past", "beneath", "despite")

	add(Auxiliary, "is", "are", "was", "were", "be", "been", "being", "am",
		"have", "has", "had", "having", "do", "does", "did", "doing")

	add(Modal, "can", "could", "will", "would", "shall", "should", "may",
		"might", "must")

	add(Conjunction, "and", "or", "but", "nor", "yet", "so", "because",
		"although", "while", "if", "unless", "until", "since", "when",
		"where", "whether")

	add(Pronoun, "i", "you", "he", "she", "it", "we", "they", "me", "him",
		"us", "them", "myself", "yourself", "himself", "herself", "itself",
		"ourselves", "themselves", "who", "whom", "whose", "which")

	add(Adjective, "old", "new", "good", "bad", "great", "small", "large",
		"big", "little", "young", "long", "short", "high", "low", "early",
		"late", "first", "last", "ancient", "dark", "bright", "powerful",
		"mighty", "wise", "evil", "grey", "black", "white", "red", "blue",
		"green", "golden", "silver", "broken", "hidden", "cursed", "sacred",
		"forgotten", "lost", "northern", "southern", "eastern", "western")

	add(Adverb, "very", "quite", "rather", "really", "too", "just", "only",
		"now", "then", "here", "there", "always", "never", "often",
		"sometimes", "slowly", "quickly", "suddenly", "finally", "already",
		"still", "even", "meanwhile", "later", "afterwards", "eventually",
		"nearby", "elsewhere")

	add(Verb, "go", "went", "gone", "going", "come", "came", "coming",
		"say", "said", "saying", "see", "saw", "seen", "seeing", "know",
		"knew", "known", "knowing", "take", "took", "taken", "taking",
		"get", "got", "getting", "make", "made", "making", "walk", "walked",
		"walking", "run", "ran", "running", "live", "lived", "living",
		"speak", "spoke", "spoken", "speaking", "fight", "fought",
		"fighting", "kill", "killed", "killing", "love", "loved", "loving",
		"hate", "hated", "hating", "rule", "ruled", "ruling", "serve",
		"served", "serving", "attack", "meet", "met", "ambush", "scout",
		"parley", "loot", "sneak", "whisper", "ride", "rode", "climb",
		"cast", "roll", "rolled")

	// Honorifics like lord and lady are left out on purpose so "Lady
	// Harrow" survives as one proper-noun run.
	add(Noun, "wizard", "king", "queen", "knight", "dragon", "sword",
		"castle", "forest", "tower", "ring", "magic", "battle", "kingdom",
		"throne", "warrior", "mage", "elf", "dwarf", "orc", "goblin",
		"troll", "man", "woman", "child", "hero", "villain", "stranger",
		"tavern", "inn", "keep", "gate", "bridge", "market", "alley",
		"warehouse", "cellar", "harbor", "crypt", "shrine", "temple",
		"tomb", "dungeon", "cavern", "road", "camp", "caravan", "guard",
		"captain", "merchant", "innkeeper", "priest", "smuggler", "thief",
		"bandit", "mercenary", "ledger", "map", "torch", "blade", "dagger",
		"bow", "shield", "armor", "potion", "scroll", "rune", "ritual",
		"curse", "oath", "bounty", "reward", "contract", "party", "session")
}

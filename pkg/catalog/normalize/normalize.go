// Package normalize turns raw entity strings scraped from profiles and
// job postings into stable canonical keys.
//
// The pipeline is deterministic: the same (type, source, language, raw)
// input always yields the same key. A raw string that normalizes to
// nothing is not an error; it means "drop this observation" and every
// caller must treat it that way.
package normalize

import (
	"sort"
	"strings"
	"unicode"
)

// Result is the outcome of a successful normalization.
type Result struct {
	Key Key

	// TitlePrefix holds seniority modifiers split off a title
	// ("senior", "lead", ...), space-joined in original order.
	// Empty for non-title types.
	TitlePrefix string

	// TitleSuffix holds trailing modifiers ("intern", "apprentice").
	TitleSuffix string
}

// Normalizer canonicalizes raw entity strings. Construct with New and
// share freely; it is read-only after construction.
type Normalizer struct {
	packs map[string]*LanguagePack

	// skillVocabulary lists single-word skill cores stripped out of
	// job-posting titles ("Java Developer" -> "developer" keeps the
	// role, drops the embedded skill when unprotected).
	skillVocabulary map[string]struct{}
}

// Options configures a Normalizer.
type Options struct {
	// Packs keyed by language code. The built-in English pack is added
	// when absent.
	Packs []*LanguagePack

	// SkillVocabulary feeds the job-posting-title skill stripper.
	SkillVocabulary []string
}

// New creates a Normalizer with the given language packs.
func New(opts Options) *Normalizer {
	n := &Normalizer{
		packs:           make(map[string]*LanguagePack),
		skillVocabulary: wordSet(opts.SkillVocabulary),
	}
	for _, p := range opts.Packs {
		n.packs[p.Language] = p
	}
	if _, ok := n.packs["en"]; !ok {
		n.packs["en"] = EnglishPack()
	}
	return n
}

// SetSkillVocabulary replaces the job-title skill vocabulary.
func (n *Normalizer) SetSkillVocabulary(words []string) {
	n.skillVocabulary = wordSet(words)
}

// Normalize canonicalizes raw text of the given entity type. The
// second return value is false when the input reduces to nothing and
// the observation should be dropped. Unknown entity types and
// languages without a pack also yield false; malformed input never
// panics.
func (n *Normalizer) Normalize(entityType, source, language, raw string) (Result, bool) {
	rules, ok := rulesByType[entityType]
	if !ok {
		return Result{}, false
	}
	pack, ok := n.packs[language]
	if !ok {
		return Result{}, false
	}
	if source == "" || strings.TrimSpace(raw) == "" {
		return Result{}, false
	}

	text := strings.ToLower(stripAccents(raw))
	for _, rw := range rules.rewrites {
		text = rw.pattern.ReplaceAllString(text, rw.replacement)
	}
	text = truncateAt(text, rules.separators)
	if rules.stripBrackets {
		text = removeBracketed(text)
	}
	text = filterCharacters(text, rules.punctuation)

	tokens := strings.Fields(text)

	var prefix, suffix []string
	if entityType == TypeTitle || entityType == TypeJobTitle {
		tokens, prefix, suffix = splitTitleAffixes(tokens, pack)
	}
	if entityType == TypeJobTitle {
		tokens = n.stripEmbeddedSkills(tokens, pack)
	}

	kept := tokens[:0]
	for _, tok := range tokens {
		if pack.IsStopword(entityType, tok) {
			continue
		}
		kept = append(kept, pack.Stem(tok))
	}
	if len(kept) == 0 {
		return Result{}, false
	}
	if rules.sortTokens {
		sort.Strings(kept)
	}

	return Result{
		Key: Key{
			Type:     entityType,
			Source:   source,
			Language: language,
			Text:     strings.Join(kept, " "),
		},
		TitlePrefix: strings.Join(prefix, " "),
		TitleSuffix: strings.Join(suffix, " "),
	}, true
}

// truncateAt cuts text at the first occurrence of any separator,
// keeping the leading clause. Titles drop the trailing employer part
// ("... at Acme"), companies drop the trailing location part.
func truncateAt(text string, separators []string) string {
	for _, sep := range separators {
		if i := strings.Index(text, sep); i >= 0 {
			text = text[:i]
		}
	}
	return text
}

// removeBracketed drops content inside (), [] and {}, tracking nesting
// depth per bracket kind. Unbalanced closers are ignored.
func removeBracketed(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	var paren, square, brace int
	for _, r := range text {
		switch r {
		case '(':
			paren++
			continue
		case ')':
			if paren > 0 {
				paren--
				continue
			}
		case '[':
			square++
			continue
		case ']':
			if square > 0 {
				square--
				continue
			}
		case '{':
			brace++
			continue
		case '}':
			if brace > 0 {
				brace--
				continue
			}
		}
		if paren == 0 && square == 0 && brace == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// filterCharacters keeps letters, digits and the type's punctuation
// whitelist; everything else becomes a space. Runs of whitespace
// collapse when the result is tokenized.
func filterCharacters(text string, punctuation map[rune]struct{}) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			if _, ok := punctuation[r]; ok {
				b.WriteRune(r)
			} else {
				b.WriteRune(' ')
			}
		}
	}
	return b.String()
}

// splitTitleAffixes peels recognized seniority prefixes off the front
// and suffix words off the back of a title's token sequence. The core
// may end up empty; the caller then rejects the title.
func splitTitleAffixes(tokens []string, pack *LanguagePack) (core, prefix, suffix []string) {
	i := 0
	for i < len(tokens) {
		if _, ok := pack.TitlePrefixes[tokens[i]]; !ok {
			break
		}
		prefix = append(prefix, tokens[i])
		i++
	}
	j := len(tokens)
	for j > i {
		if _, ok := pack.TitleSuffixes[tokens[j-1]]; !ok {
			break
		}
		suffix = append([]string{tokens[j-1]}, suffix...)
		j--
	}
	return tokens[i:j], prefix, suffix
}

// stripEmbeddedSkills removes single vocabulary words from a
// job-posting title unless the word is protected or directly followed
// by a protected suffix ("java engineer" keeps "java").
func (n *Normalizer) stripEmbeddedSkills(tokens []string, pack *LanguagePack) []string {
	if len(n.skillVocabulary) == 0 {
		return tokens
	}
	kept := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		if _, isSkill := n.skillVocabulary[tok]; isSkill {
			if _, protected := pack.Protected[tok]; !protected {
				guarded := false
				if i+1 < len(tokens) {
					_, guarded = pack.ProtectedSuffixes[tokens[i+1]]
				}
				if !guarded {
					continue
				}
			}
		}
		kept = append(kept, tok)
	}
	return kept
}

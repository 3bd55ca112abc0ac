package normalize

import (
	"github.com/kljensen/snowball"
)

// LanguagePack bundles the per-language word lists used by the
// normalizer. The stopword set is deliberately much smaller than a
// generic NLP stoplist: short verbs like "is", "can" and "do" carry
// meaning in skill and title phrases and are kept.
type LanguagePack struct {
	Language string

	// Stopwords removed from every entity type.
	Stopwords map[string]struct{}

	// CompanyStopwords are removed from company names in addition to
	// Stopwords; mostly legal-entity suffixes.
	CompanyStopwords map[string]struct{}

	// Protected words are never stemmed (domain terms the stemmer
	// mangles, e.g. "hospitality" -> "hospit").
	Protected map[string]struct{}

	// TitlePrefixes are seniority modifiers split off the front of a
	// title and reported separately.
	TitlePrefixes map[string]struct{}

	// TitleSuffixes are split off the end of a title.
	TitleSuffixes map[string]struct{}

	// ProtectedSuffixes guard skill words in job-posting titles: a
	// vocabulary word directly followed by one of these is part of the
	// role, not an embedded skill ("Java Engineer" keeps "java").
	ProtectedSuffixes map[string]struct{}

	stemLanguage string
}

// snowball language names by ISO 639-1 code. Languages outside this
// table skip the stemming step.
var stemLanguages = map[string]string{
	"en": "english",
	"fr": "french",
	"es": "spanish",
	"sv": "swedish",
	"no": "norwegian",
	"ru": "russian",
	"hu": "hungarian",
}

// NewLanguagePack builds a pack from plain word lists.
func NewLanguagePack(language string, stopwords, companyStopwords, protected,
	titlePrefixes, titleSuffixes, protectedSuffixes []string) *LanguagePack {
	return &LanguagePack{
		Language:          language,
		Stopwords:         wordSet(stopwords),
		CompanyStopwords:  wordSet(companyStopwords),
		Protected:         wordSet(protected),
		TitlePrefixes:     wordSet(titlePrefixes),
		TitleSuffixes:     wordSet(titleSuffixes),
		ProtectedSuffixes: wordSet(protectedSuffixes),
		stemLanguage:      stemLanguages[language],
	}
}

// EnglishPack returns the built-in English language pack.
func EnglishPack() *LanguagePack {
	return NewLanguagePack("en",
		[]string{
			"a", "an", "and", "the", "of", "or",
			"in", "on", "at", "to", "for", "with",
		},
		[]string{
			"limited", "ltd", "inc", "plc", "uk", "llc", "llp", "co",
		},
		[]string{
			"hospitality", "sales", "logistics", "analytics",
			"aerospace", "mathematics", "operations",
		},
		[]string{
			"senior", "junior", "lead", "head", "chief", "apprentice",
			"intern", "freelance", "trainee", "associate", "staff",
			"graduate",
		},
		[]string{
			"intern", "apprentice",
		},
		[]string{
			"engineer", "developer", "manager", "architect",
			"consultant", "analyst", "administrator", "designer",
			"specialist",
		},
	)
}

// Stem reduces a word to its snowball stem, unless the word is
// protected or the pack's language has no stemmer.
func (p *LanguagePack) Stem(word string) string {
	if p.stemLanguage == "" {
		return word
	}
	if _, ok := p.Protected[word]; ok {
		return word
	}
	stemmed, err := snowball.Stem(word, p.stemLanguage, false)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// IsStopword reports whether word is dropped for the given entity
// type. Company names use the extended legal-suffix set.
func (p *LanguagePack) IsStopword(entityType, word string) bool {
	if _, ok := p.Stopwords[word]; ok {
		return true
	}
	if entityType == TypeCompany {
		if _, ok := p.CompanyStopwords[word]; ok {
			return true
		}
	}
	return false
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

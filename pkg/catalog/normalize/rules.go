package normalize

import "regexp"

// typeRules captures the per-entity-type shape of the pipeline: which
// punctuation survives the character filter, which rewrites run before
// it, and how the raw string is truncated.
type typeRules struct {
	// punctuation kept by the character filter, besides letters and digits.
	punctuation map[rune]struct{}

	// separators: the raw string is cut at the first occurrence of any
	// of these, keeping only the leading clause.
	separators []string

	// rewrites applied to the lowercased string before the character
	// filter, so symbol-bearing names survive it.
	rewrites []rewrite

	// stripBrackets drops parenthesized/bracketed/braced content.
	stripBrackets bool

	// sortTokens orders the surviving tokens alphabetically before
	// joining (order-insensitive matching, used for institutes).
	sortTokens bool
}

type rewrite struct {
	pattern     *regexp.Regexp
	replacement string
}

var techRewrites = []rewrite{
	{regexp.MustCompile(`(^|\s)\.net\b`), "${1}dotnet"},
	{regexp.MustCompile(`\bc\+\+`), "cplusplus"},
	{regexp.MustCompile(`\bc#`), "csharp"},
	{regexp.MustCompile(`\bf#`), "fsharp"},
	{regexp.MustCompile(`\bobjective-c\b`), "objectivec"},
}

var degreeRewrites = []rewrite{
	{regexp.MustCompile(`\bb\.?\s?sc\b\.?`), "bachelor of science"},
	{regexp.MustCompile(`\bm\.?\s?sc\b\.?`), "master of science"},
	{regexp.MustCompile(`\bb\.?\s?a\b\.?`), "bachelor of arts"},
	{regexp.MustCompile(`\bm\.?\s?a\b\.?`), "master of arts"},
	{regexp.MustCompile(`\bb\.?\s?eng\b\.?`), "bachelor of engineering"},
	{regexp.MustCompile(`\bm\.?\s?eng\b\.?`), "master of engineering"},
	{regexp.MustCompile(`\bph\.?\s?d\b\.?`), "doctor of philosophy"},
	{regexp.MustCompile(`\bmba\b`), "master of business administration"},
	{regexp.MustCompile(`\b\d+(st|nd|rd|th)\b`), " "},
}

// jobTitleScrubs remove salary figures and "x2"-style duplicate
// markers that job boards embed in posting titles.
var jobTitleScrubs = []rewrite{
	{regexp.MustCompile(`^[\s\-]*[£$€]\s?\d[\d,.]*k?\b[\s\-]*`), ""},
	{regexp.MustCompile(`^[\s\-]*\d[\d,.]*k\b[\s\-]*`), ""},
	{regexp.MustCompile(`\b(?:x\s?\d+|\d+\s?x)\b`), " "},
}

var titleSeparators = []string{" at ", " for ", " - ", " / ", ","}
var companySeparators = []string{",", " - ", " / "}

var rulesByType = map[string]*typeRules{
	TypeSkill: {
		punctuation:   punct(`&/-,'+#.`),
		rewrites:      techRewrites,
		stripBrackets: true,
	},
	TypeTitle: {
		punctuation:   punct(`&/-,'+#.`),
		separators:    titleSeparators,
		rewrites:      techRewrites,
		stripBrackets: true,
	},
	TypeJobTitle: {
		punctuation:   punct(`&/-,'+#.`),
		separators:    titleSeparators,
		rewrites:      append(append([]rewrite{}, jobTitleScrubs...), techRewrites...),
		stripBrackets: true,
	},
	TypeCompany: {
		punctuation:   punct(`-/&`),
		separators:    companySeparators,
		stripBrackets: true,
	},
	TypeSector: {
		punctuation: punct(`&/-`),
	},
	TypeInstitute: {
		punctuation:   punct(`&-'`),
		stripBrackets: true,
		sortTokens:    true,
	},
	TypeDegree: {
		punctuation:   punct(`&-'`),
		rewrites:      degreeRewrites,
		stripBrackets: true,
	},
	TypeSubject: {
		punctuation:   punct(`&/-,'+#.`),
		rewrites:      techRewrites,
		stripBrackets: true,
	},
}

func punct(chars string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(chars))
	for _, r := range chars {
		set[r] = struct{}{}
	}
	return set
}

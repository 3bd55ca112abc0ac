package normalize

import (
	"fmt"
	"strings"

	"github.com/cognicore/tabellarius/pkg/catalog/internalerr"
)

// Entity types understood by the normalizer.
const (
	TypeSkill     = "skill"
	TypeTitle     = "title"
	TypeJobTitle  = "job_title"
	TypeCompany   = "company"
	TypeSector    = "sector"
	TypeInstitute = "institute"
	TypeDegree    = "degree"
	TypeSubject   = "subject"
)

// Key identifies one canonical entity. The serialized form is the
// colon-joined string "type:source:language:text" and is used as the
// sort/join key throughout the catalog. Text never contains a colon.
type Key struct {
	Type     string
	Source   string
	Language string
	Text     string
}

// String serializes the key in its canonical colon-joined form.
func (k Key) String() string {
	return k.Type + ":" + k.Source + ":" + k.Language + ":" + k.Text
}

// ParseKey splits a serialized key back into its four parts.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("parse key %q: %w", s, internalerr.ErrInvalidInput)
	}
	for _, p := range parts[:3] {
		if p == "" {
			return Key{}, fmt.Errorf("parse key %q: %w", s, internalerr.ErrInvalidInput)
		}
	}
	return Key{
		Type:     parts[0],
		Source:   parts[1],
		Language: parts[2],
		Text:     parts[3],
	}, nil
}

// ValidType reports whether t is one of the known entity types.
func ValidType(t string) bool {
	switch t {
	case TypeSkill, TypeTitle, TypeJobTitle, TypeCompany, TypeSector,
		TypeInstitute, TypeDegree, TypeSubject:
		return true
	}
	return false
}

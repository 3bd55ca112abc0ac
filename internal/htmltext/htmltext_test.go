package htmltext

import "testing"

func TestExtractPlainText(t *testing.T) {
	if got := Extract("Senior  Engineer "); got != "Senior Engineer" {
		t.Errorf("Expected collapsed plain text, got %q", got)
	}
}

func TestExtractStripsTags(t *testing.T) {
	got := Extract("<b>Senior</b> <i>Engineer</i>")
	if got != "Senior Engineer" {
		t.Errorf("Expected tags stripped, got %q", got)
	}
}

func TestExtractSkipsScriptAndStyle(t *testing.T) {
	got := Extract(`<p>Engineer</p><script>alert("x")</script><style>p{}</style>`)
	if got != "Engineer" {
		t.Errorf("Expected script/style content dropped, got %q", got)
	}
}

func TestExtractMalformed(t *testing.T) {
	got := Extract("<b>Engineer")
	if got != "Engineer" {
		t.Errorf("Expected lenient handling, got %q", got)
	}
}

func TestExtractEmpty(t *testing.T) {
	if got := Extract(""); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
}

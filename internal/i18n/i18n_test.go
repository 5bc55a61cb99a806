package i18n

import "testing"

func TestTranslateKnownKey(t *testing.T) {
	if got := T(ES, "err_remote"); got != "Falló la traducción" {
		t.Fatalf("unexpected translation: %q", got)
	}
}

func TestFallbackToEnglish(t *testing.T) {
	if got := T(Language("de"), "err_remote"); got != "Translation failed" {
		t.Fatalf("expected english fallback, got %q", got)
	}
}

func TestFallbackToKey(t *testing.T) {
	if got := T(EN, "no_such_key"); got != "no_such_key" {
		t.Fatalf("expected key passthrough, got %q", got)
	}
}

func TestParse(t *testing.T) {
	if Parse("es") != ES || Parse("zz") != EN {
		t.Fatal("unexpected parse results")
	}
}

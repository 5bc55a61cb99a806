package translate

import (
	"context"
	"fmt"

	"github.com/parlolabs/parlo-core/internal/language"
)

type mockClient struct {
	catalog *language.Catalog
}

// NewMockClient returns a Client that fabricates deterministic
// translations for development and tests.
func NewMockClient(catalog *language.Catalog) Client {
	return &mockClient{catalog: catalog}
}

func (m *mockClient) detected(sourceHint string) string {
	if sourceHint != language.Auto {
		if name, ok := m.catalog.LookupByCode(sourceHint); ok {
			return name
		}
	}
	return "English"
}

func (m *mockClient) Translate(_ context.Context, text, sourceHint, targetCode string) (Result, error) {
	target, _ := m.catalog.LookupByCode(targetCode)
	return Result{
		DetectedLanguage: m.detected(sourceHint),
		TranslatedText:   fmt.Sprintf("[%s] %s", target, text),
	}, nil
}

func (m *mockClient) TranscribeAndTranslate(_ context.Context, audio []byte, _, sourceHint, targetCode string) (Result, error) {
	target, _ := m.catalog.LookupByCode(targetCode)
	transcript := fmt.Sprintf("[transcript length=%d]", len(audio))
	return Result{
		TranscribedText:  transcript,
		DetectedLanguage: m.detected(sourceHint),
		TranslatedText:   fmt.Sprintf("[%s] %s", target, transcript),
	}, nil
}

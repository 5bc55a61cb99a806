package translate

import (
	"fmt"

	"github.com/parlolabs/parlo-core/internal/config"
	"github.com/parlolabs/parlo-core/internal/language"
)

// NewClient builds the configured translator backend.
func NewClient(cfg config.TranslatorConfig, catalog *language.Catalog) (Client, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockClient(catalog), nil
	case "gemini":
		return NewGeminiClient(cfg, catalog), nil
	case "exec":
		return NewExecClient(cfg.Command)
	default:
		return nil, fmt.Errorf("unknown translator mode %q", cfg.Mode)
	}
}

package translate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/parlolabs/parlo-core/internal/config"
	"github.com/parlolabs/parlo-core/internal/language"
)

type geminiClient struct {
	endpoint string
	apiKey   string
	model    string
	timeout  time.Duration
	catalog  *language.Catalog
	http     *http.Client
}

// NewGeminiClient builds a Client backed by the Gemini generateContent
// API with a structured JSON response schema.
func NewGeminiClient(cfg config.TranslatorConfig, catalog *language.Catalog) Client {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &geminiClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		timeout:  timeout,
		catalog:  catalog,
		http:     &http.Client{},
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type translationPayload struct {
	TranscribedText  string `json:"transcribedText"`
	DetectedLanguage string `json:"detectedLanguage"`
	TranslatedText   string `json:"translatedText"`
}

var textSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "detectedLanguage": {"type": "STRING"},
    "translatedText": {"type": "STRING"}
  },
  "required": ["detectedLanguage", "translatedText"]
}`)

var audioSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "transcribedText": {"type": "STRING"},
    "detectedLanguage": {"type": "STRING"},
    "translatedText": {"type": "STRING"}
  },
  "required": ["transcribedText", "detectedLanguage", "translatedText"]
}`)

func (g *geminiClient) displayName(code, fallback string) string {
	if name, ok := g.catalog.LookupByCode(code); ok {
		return name
	}
	return fallback
}

func (g *geminiClient) Translate(ctx context.Context, text, sourceHint, targetCode string) (Result, error) {
	target := g.displayName(targetCode, "the target language")

	var prompt string
	if sourceHint == language.Auto {
		prompt = fmt.Sprintf(`You are an expert multilingual translator. First, identify the language of the following text. Then, translate it to %s. If the source language is already %s, simply return the original text as the translated text.

Text to translate: %q

Provide the response in the specified JSON format.`, target, target, text)
	} else {
		source := g.displayName(sourceHint, "the source language")
		prompt = fmt.Sprintf(`You are an expert multilingual translator. The user has specified the source language is %s. Translate the following text to %s.

Text to translate: %q

Provide the response in the specified JSON format. The "detectedLanguage" field in your response must be %q.`, source, target, text, source)
	}

	req := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{ResponseMIMEType: "application/json", ResponseSchema: textSchema},
	}
	payload, err := g.generate(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if payload.DetectedLanguage == "" || payload.TranslatedText == "" {
		return Result{}, fmt.Errorf("%w: missing fields in response", ErrTranslationFailed)
	}
	return Result{DetectedLanguage: payload.DetectedLanguage, TranslatedText: payload.TranslatedText}, nil
}

func (g *geminiClient) TranscribeAndTranslate(ctx context.Context, audio []byte, mimeType, sourceHint, targetCode string) (Result, error) {
	target := g.displayName(targetCode, "the target language")

	var prompt string
	if sourceHint == language.Auto {
		prompt = fmt.Sprintf(`You are an expert multilingual translator. First, transcribe the audio provided. Then, identify the language of the transcribed text. Finally, translate the transcribed text to %s. If the source language is already %s, simply return the original transcription as the translated text.

Provide the response in the specified JSON format. The "transcribedText" field should contain the full transcription.`, target, target)
	} else {
		source := g.displayName(sourceHint, "the source language")
		prompt = fmt.Sprintf(`You are an expert multilingual translator. First, transcribe the audio provided, assuming the spoken language is %s. Then, translate the transcribed text to %s.

Provide the response in the specified JSON format. The "transcribedText" field should contain the full transcription, and the "detectedLanguage" field in your response must be %q.`, source, target, source)
	}

	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{
			{InlineData: &geminiInlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(audio)}},
			{Text: prompt},
		}}},
		GenerationConfig: geminiGenerationConfig{ResponseMIMEType: "application/json", ResponseSchema: audioSchema},
	}
	payload, err := g.generate(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if payload.TranscribedText == "" || payload.DetectedLanguage == "" || payload.TranslatedText == "" {
		return Result{}, fmt.Errorf("%w: missing fields in response", ErrTranslationFailed)
	}
	return Result{
		TranscribedText:  payload.TranscribedText,
		DetectedLanguage: payload.DetectedLanguage,
		TranslatedText:   payload.TranslatedText,
	}, nil
}

func (g *geminiClient) generate(ctx context.Context, req geminiRequest) (translationPayload, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return translationPayload{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.endpoint, g.model)
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return translationPayload{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return translationPayload{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return translationPayload{}, fmt.Errorf("%w: gemini returned status %s", ErrTranslationFailed, resp.Status)
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return translationPayload{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return translationPayload{}, fmt.Errorf("%w: empty response", ErrTranslationFailed)
	}

	var payload translationPayload
	text := strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text)
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return translationPayload{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	return payload, nil
}

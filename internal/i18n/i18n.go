// Package i18n holds the user-facing display strings. The tables are
// plain key→string lookups consumed at the presentation edge; core
// packages report typed errors and never touch these.
package i18n

// Language selects a display-string table.
type Language string

const (
	EN Language = "en"
	ES Language = "es"
)

// Parse returns a supported UI language, defaulting to English.
func Parse(s string) Language {
	switch Language(s) {
	case ES:
		return ES
	default:
		return EN
	}
}

var tables = map[Language]map[string]string{
	EN: {
		"state_idle":       "Press and hold to speak",
		"state_recording":  "Recording...",
		"state_processing": "Processing...",
		"state_speaking":   "Speaking...",

		"err_capture":     "Speech recognition failed",
		"err_too_large":   "Audio file exceeds the upload size limit",
		"err_remote":      "Translation failed",
		"err_playback":    "Could not synthesize speech",
		"err_unsupported": "Speech capture is not available on this device",
	},
	ES: {
		"state_idle":       "Mantén pulsado para hablar",
		"state_recording":  "Grabando...",
		"state_processing": "Procesando...",
		"state_speaking":   "Hablando...",

		"err_capture":     "Falló el reconocimiento de voz",
		"err_too_large":   "El archivo de audio supera el límite de subida",
		"err_remote":      "Falló la traducción",
		"err_playback":    "No se pudo sintetizar la voz",
		"err_unsupported": "La captura de voz no está disponible en este dispositivo",
	},
}

// T resolves a key in the given language, falling back to English and
// finally to the key itself.
func T(lang Language, key string) string {
	if table, ok := tables[lang]; ok {
		if s, ok := table[key]; ok {
			return s
		}
	}
	if s, ok := tables[EN][key]; ok {
		return s
	}
	return key
}

package translate

import "sort"

// languageCodes maps the display names offered at signup to ISO 639-1
// codes. The translator only carries models for these pairs.
var languageCodes = map[string]string{
	"English": "en",
	"Hindi":   "hi",
	"Spanish": "es",
}

// Code resolves a language display name (or an already valid code) to
// its ISO 639-1 code. The second result is false for unsupported
// languages.
func Code(language string) (string, bool) {
	if code, ok := languageCodes[language]; ok {
		return code, true
	}
	for _, code := range languageCodes {
		if code == language {
			return code, true
		}
	}
	return "", false
}

// Supported lists the supported language display names, sorted.
func Supported() []string {
	names := make([]string, 0, len(languageCodes))
	for name := range languageCodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

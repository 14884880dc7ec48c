// Package lang validates the language hint passed to transcription
// backends. Codes are BCP 47 tags ("en", "pt-BR"); "auto" or empty means
// the backend detects the language itself.
package lang

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the explicit auto-detect value.
const Auto = "auto"

// Normalize lowercases a code and uses hyphen separators.
// Accepts: "pt-BR", "pt_BR", "PT-BR", "pt-br" -> "pt-br"
func Normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

// IsAuto reports whether code asks for auto-detection.
func IsAuto(code string) bool {
	n := Normalize(code)
	return n == "" || n == Auto
}

// Parse validates code and returns its canonical form ("pt_br" -> "pt-BR").
// Auto-detect values return "".
func Parse(code string) (string, error) {
	if IsAuto(code) {
		return "", nil
	}
	tag, err := language.Parse(Normalize(code))
	if err != nil {
		return "", fmt.Errorf("%w: %q (use codes like 'en', 'fr', 'pt-BR' or 'auto'): %v", ErrInvalid, code, err)
	}
	return tag.String(), nil
}

// Validate checks that code is "auto", empty, or a known language tag.
func Validate(code string) error {
	_, err := Parse(code)
	return err
}

// BaseCode extracts the base language from a tag.
// Examples: "pt-BR" -> "pt", "zh-CN" -> "zh", "auto" -> ""
func BaseCode(code string) string {
	if IsAuto(code) {
		return ""
	}
	tag, err := language.Parse(Normalize(code))
	if err != nil {
		n := Normalize(code)
		if idx := strings.Index(n, "-"); idx != -1 {
			return n[:idx]
		}
		return n
	}
	base, _ := tag.Base()
	return base.String()
}

// DisplayName returns the English name of a language ("pt-BR" ->
// "Brazilian Portuguese"). Unknown codes are returned unchanged.
func DisplayName(code string) string {
	if IsAuto(code) {
		return "auto-detect"
	}
	tag, err := language.Parse(Normalize(code))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

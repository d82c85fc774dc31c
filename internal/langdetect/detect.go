// Package langdetect угадывает язык текста по характерным символам.
package langdetect

import (
	"regexp"
	"strings"
)

// DefaultLanguage используется, когда вызывающий не задал свой fallback
const DefaultLanguage = "en"

type rule struct {
	lang    string
	pattern *regexp.Regexp
}

// Порядок важен: побеждает первое совпадение.
// Японский проверяется раньше китайского, потому что кандзи входят в оба диапазона.
var rules = []rule{
	{"ja", regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FAF}]`)},
	{"ko", regexp.MustCompile(`[\x{AC00}-\x{D7AF}\x{1100}-\x{11FF}\x{3130}-\x{318F}]`)},
	{"zh", regexp.MustCompile(`[\x{4E00}-\x{9FFF}]`)},
	{"ar", regexp.MustCompile(`[\x{0600}-\x{06FF}\x{0750}-\x{077F}]`)},
	{"hi", regexp.MustCompile(`[\x{0900}-\x{097F}]`)},
	{"th", regexp.MustCompile(`[\x{0E00}-\x{0E7F}]`)},
	{"vi", regexp.MustCompile(`(?i)[àáảãạâầấẩẫậăằắẳẵặèéẻẽẹêềếểễệìíỉĩịòóỏõọôồốổỗộơờớởỡợùúủũụưừứửữựỳýỷỹỵđ]`)},
	{"ru", regexp.MustCompile(`[\x{0400}-\x{04FF}]`)},
	{"es", regexp.MustCompile(`(?i)[ñáéíóúü]`)},
	{"fr", regexp.MustCompile(`(?i)[àâäçéèêëïîôùûüÿ]`)},
	{"de", regexp.MustCompile(`[äöüßÄÖÜ]`)},
	{"pt", regexp.MustCompile(`(?i)[ãâáàçêéíôóõúü]`)},
	{"it", regexp.MustCompile(`(?i)[àèéìíîòóù]`)},
	{"nl", regexp.MustCompile(`[äëïöüÄËÏÖÜ]`)},
}

// Текст из одной базовой латиницы и пунктуации считаем английским
var english = regexp.MustCompile(`^[a-zA-Z0-9\s.,!?;:()"-]+$`)

// Detect возвращает код языка. Если ни одно правило не сработало,
// возвращается fallback (или DefaultLanguage, если он пуст).
func Detect(text, fallback string) string {
	if fallback == "" {
		fallback = DefaultLanguage
	}

	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return r.lang
		}
	}

	if english.MatchString(strings.TrimSpace(text)) {
		return "en"
	}
	return fallback
}

// Languages перечисляет коды в порядке проверки, en последним
func Languages() []string {
	out := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.lang)
	}
	return append(out, "en")
}

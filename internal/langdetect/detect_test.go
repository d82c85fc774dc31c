package langdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"hiragana", "こんにちは", "ja"},
		{"kanji wins over chinese", "漢字", "ja"},
		{"hangul", "안녕하세요", "ko"},
		{"cjk extension outside ja range", "龰", "zh"},
		{"arabic", "مرحبا", "ar"},
		{"devanagari", "नमस्ते", "hi"},
		{"thai", "สวัสดี", "th"},
		{"vietnamese", "Xin chào", "vi"},
		{"cyrillic", "Привет", "ru"},
		{"spanish tilde", "mañana", "es"},
		{"french cedilla", "garçon", "fr"},
		{"german eszett", "Straße", "de"},
		{"plain english", "Hello, world!", "en"},
		{"english with spaces around", "  ok then  ", "en"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Detect(tc.text, "xx"))
		})
	}
}

func TestDetectFallback(t *testing.T) {
	assert.Equal(t, "ja", Detect("ping @bob", "ja"))
	assert.Equal(t, "ja", Detect("", "ja"))
	assert.Equal(t, DefaultLanguage, Detect("👍", ""))
}

func TestDetectVietnameseShadowsLatinAccents(t *testing.T) {
	// é есть в вьетнамском наборе, он проверяется раньше
	assert.Equal(t, "vi", Detect("café", "en"))
}

func TestLanguages(t *testing.T) {
	langs := Languages()
	assert.Equal(t, "ja", langs[0])
	assert.Equal(t, "en", langs[len(langs)-1])
	assert.Len(t, langs, 15)
}

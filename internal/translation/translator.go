package translation

import "context"

// Translator внешний переводчик. Ошибка означает, что перевода нет.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type TranslatorFunc func(ctx context.Context, text, source, target string) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, text, source, target string) (string, error) {
	return f(ctx, text, source, target)
}

// Unavailable переводчик-заглушка, когда бэкенды не настроены
var Unavailable Translator = TranslatorFunc(func(context.Context, string, string, string) (string, error) {
	return "", ErrNoEndpoints
})

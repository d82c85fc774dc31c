package translation

import "github.com/pkg/errors"

var (
	ErrTranslationUnavailable = errors.New("translation unavailable")
	ErrSchedulerClosed        = errors.New("translation scheduler is closed")
	ErrNoEndpoints            = errors.New("no translation endpoints configured")
)

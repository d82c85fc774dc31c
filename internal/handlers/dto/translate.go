package dto

type TranslateRequest struct {
	Text     string `json:"text" binding:"required"`
	Source   string `json:"source"`
	Target   string `json:"target" binding:"required"`
	Priority string `json:"priority"`
}

type TranslateResponse struct {
	TranslatedText string `json:"translatedText"`
	Source         string `json:"source"`
	Translated     bool   `json:"translated"`
	Cached         bool   `json:"cached"`
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/internal/handlers/dto"
	"github.com/thereayou/bolcha/internal/translation"
	"github.com/thereayou/bolcha/pkg/logger"
)

// TranslateHandler отдаёт общий на процесс кэш и планировщик переводов клиентам
type TranslateHandler struct {
	scheduler *translation.Scheduler
	stats     func() []translation.EndpointStats
	wait      time.Duration
	log       *zap.Logger
}

func NewTranslateHandler(s *translation.Scheduler, stats func() []translation.EndpointStats, log *zap.Logger) *TranslateHandler {
	return &TranslateHandler{
		scheduler: s,
		stats:     stats,
		wait:      20 * time.Second,
		log:       logger.OrNop(log).Named("translate"),
	}
}

// Translate при сбое отвечает 503 с исходным текстом, чтобы клиент его не кэшировал
func (h *TranslateHandler) Translate(c *gin.Context) {
	var req dto.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch := h.scheduler.Request(translation.Message{Text: req.Text, OriginalLanguage: req.Source}, req.Target, translation.ParsePriority(req.Priority))

	timer := time.NewTimer(h.wait)
	defer timer.Stop()

	var res translation.Result
	select {
	case res = <-ch:
	case <-c.Request.Context().Done():
		return
	case <-timer.C:
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "translation timed out", "translatedText": req.Text})
		return
	}

	if res.Err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "translation unavailable", "translatedText": res.Text})
		return
	}

	c.JSON(http.StatusOK, dto.TranslateResponse{
		TranslatedText: res.Text,
		Source:         res.Source,
		Translated:     res.Translated,
		Cached:         res.Cached,
	})
}

// Stats счётчики внешних эндпоинтов и размер кэша
func (h *TranslateHandler) Stats(c *gin.Context) {
	var endpoints []translation.EndpointStats
	if h.stats != nil {
		endpoints = h.stats()
	}
	c.JSON(http.StatusOK, gin.H{
		"endpoints":   endpoints,
		"cache_size":  h.scheduler.Cache().Len(),
		"queue_depth": h.scheduler.QueueLen(),
	})
}

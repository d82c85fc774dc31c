package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/thereayou/bolcha/pkg/logger"
)

type HTTPOptions struct {
	Client     *http.Client
	RatePerSec float64 // 0 = без ограничения
	Burst      int
	Header     http.Header
	Logger     *zap.Logger
}

type EndpointStats struct {
	URL       string    `json:"url"`
	Priority  int       `json:"priority"`
	Successes int64     `json:"success_count"`
	Errors    int64     `json:"error_count"`
	LastUsed  time.Time `json:"last_used"`
}

type translateRequest struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Priority string `json:"priority,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// HTTPTranslator перебирает эндпоинты по приоритету (меньше = раньше),
// при равном приоритете сначала тот, у кого меньше ошибок
type HTTPTranslator struct {
	client  *http.Client
	limiter *rate.Limiter
	header  http.Header
	log     *zap.Logger

	mu        sync.Mutex
	endpoints []*EndpointStats
}

func NewHTTPTranslator(urls []string, opts HTTPOptions) *HTTPTranslator {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	t := &HTTPTranslator{
		client:  opts.Client,
		limiter: rate.NewLimiter(limit, opts.Burst),
		header:  opts.Header,
		log:     logger.OrNop(opts.Logger).Named("translator"),
	}
	for i, u := range urls {
		t.endpoints = append(t.endpoints, &EndpointStats{URL: u, Priority: i})
	}
	return t
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	order := t.ordered()
	if len(order) == 0 {
		return "", ErrNoEndpoints
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return "", errors.Wrapf(ErrTranslationUnavailable, "rate limit: %v", err)
	}

	body, err := json.Marshal(translateRequest{Text: text, Source: source, Target: target, Priority: PriorityFrom(ctx).String()})
	if err != nil {
		return "", errors.Wrap(err, "encode translate request")
	}

	var lastErr error
	for _, ep := range order {
		out, err := t.call(ctx, ep.URL, body)
		t.record(ep.URL, err == nil)
		if err == nil {
			return out, nil
		}
		lastErr = err
		t.log.Debug("translation endpoint failed", zap.String("url", ep.URL), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Wrapf(ErrTranslationUnavailable, "%d endpoint(s) failed, last: %v", len(order), lastErr)
}

func (t *HTTPTranslator) call(ctx context.Context, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range t.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var payload translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "decode translate response")
	}
	out := unwrapTranslated(payload.TranslatedText)
	if strings.TrimSpace(out) == "" {
		return "", errors.New("empty translatedText")
	}
	return out, nil
}

// Некоторые бэкенды кладут в translatedText ещё один JSON {code, text}
func unwrapTranslated(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return s
	}
	var inner struct {
		Code int    `json:"code"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(trimmed), &inner); err != nil || inner.Text == "" {
		return s
	}
	return inner.Text
}

func (t *HTTPTranslator) ordered() []EndpointStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]EndpointStats, len(t.endpoints))
	for i, ep := range t.endpoints {
		out[i] = *ep
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Errors < out[j].Errors
	})
	return out
}

func (t *HTTPTranslator) record(url string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, ep := range t.endpoints {
		if ep.URL != url {
			continue
		}
		ep.LastUsed = time.Now()
		if ok {
			ep.Successes++
		} else {
			ep.Errors++
		}
		return
	}
}

// Stats снимок счётчиков по эндпоинтам в порядке настройки
func (t *HTTPTranslator) Stats() []EndpointStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]EndpointStats, len(t.endpoints))
	for i, ep := range t.endpoints {
		out[i] = *ep
	}
	return out
}

type priorityKey struct{}

// WithPriority прокидывает приоритет задачи до HTTP-запроса
func WithPriority(ctx context.Context, p Priority) context.Context {
	return context.WithValue(ctx, priorityKey{}, p)
}

func PriorityFrom(ctx context.Context) Priority {
	if p, ok := ctx.Value(priorityKey{}).(Priority); ok {
		return p
	}
	return Normal
}

package translation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/internal/langdetect"
	"github.com/thereayou/bolcha/pkg/logger"
)

// Message то, что нужно планировщику от сообщения чата
type Message struct {
	Text             string
	OriginalLanguage string
}

type Result struct {
	Text       string
	Source     string
	Translated bool
	Cached     bool
	Err        error
}

type Options struct {
	Workers         int
	Tiers           TierPolicy
	TargetLanguage  string
	DefaultLanguage string // fallback детектора
	CallTimeout     time.Duration
	Store           Store
	Cache           *Cache
	Metrics         *Metrics
	Logger          *zap.Logger
}

func (o *Options) norm() {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.Tiers == (TierPolicy{}) {
		o.Tiers = DefaultTierPolicy()
	}
	if o.TargetLanguage == "" {
		o.TargetLanguage = "ja"
	}
	if o.DefaultLanguage == "" {
		o.DefaultLanguage = langdetect.DefaultLanguage
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 15 * time.Second
	}
	if o.Cache == nil {
		o.Cache = NewCache()
	}
	if o.Metrics == nil {
		o.Metrics = NewMetrics(nil)
	}
	o.Logger = logger.OrNop(o.Logger)
}

// Scheduler объединяет одинаковые запросы в одну задачу и раздаёт
// задачи воркерам по приоритету. Сбой перевода отдаёт исходный текст
// и ничего не кэширует.
type Scheduler struct {
	translator Translator
	opts       Options
	cache      *Cache
	log        *zap.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    jobQueue
	inflight map[Key]*job
	target   string
	started  bool
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(tr Translator, opts Options) *Scheduler {
	opts.norm()
	s := &Scheduler{
		translator: tr,
		opts:       opts,
		cache:      opts.Cache,
		log:        opts.Logger.Named("translation"),
		inflight:   make(map[Key]*job),
		target:     opts.TargetLanguage,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start подгружает сохранённый кэш и запускает воркеры.
// Ошибка загрузки не фатальна: планировщик стартует с пустым кэшем.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	var loadErr error
	if s.opts.Store != nil {
		entries, err := s.opts.Store.Load(ctx)
		if err != nil {
			loadErr = errors.Wrap(err, "restore translation cache")
			s.log.Warn("translation cache not restored", zap.Error(err))
		} else {
			n := s.cache.Load(entries)
			s.log.Info("translation cache restored", zap.Int("entries", n))
		}
	}

	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return loadErr
}

// Close перестаёт принимать запросы, дожидается уже выданных вызовов
// и сохраняет кэш. Задачи из очереди получают исходный текст.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := s.queue.drain()
	for _, j := range pending {
		delete(s.inflight, j.key)
	}
	s.opts.Metrics.QueueDepth.Set(0)
	s.cond.Broadcast()
	s.mu.Unlock()

	for _, j := range pending {
		res := Result{Text: j.key.Text, Source: j.key.Source, Err: ErrSchedulerClosed}
		for _, w := range j.waiters {
			w <- res
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if s.cancel != nil {
			s.cancel()
		}
		<-done
	}
	if s.cancel != nil {
		s.cancel()
	}

	if s.opts.Store == nil {
		return nil
	}
	entries := s.cache.Entries()
	if err := s.opts.Store.Save(context.WithoutCancel(ctx), entries); err != nil {
		return errors.Wrap(err, "persist translation cache")
	}
	s.log.Info("translation cache saved", zap.Int("entries", len(entries)))
	return nil
}

// SourceLanguage язык отправителя или результат детектора
func (s *Scheduler) SourceLanguage(msg Message) string {
	if msg.OriginalLanguage != "" {
		return msg.OriginalLanguage
	}
	return langdetect.Detect(msg.Text, s.opts.DefaultLanguage)
}

// Get без побочных эффектов
func (s *Scheduler) Get(text, source, target string) (string, bool) {
	return s.cache.Get(Key{Text: text, Source: source, Target: target})
}

// Request не блокируется. Канал получит ровно один Result.
// Пустой target означает текущий язык сессии.
func (s *Scheduler) Request(msg Message, target string, p Priority) <-chan Result {
	out := make(chan Result, 1)
	p = p.clamp()

	if strings.TrimSpace(msg.Text) == "" {
		out <- Result{Text: msg.Text}
		return out
	}
	if target == "" {
		target = s.TargetLanguage()
	}
	source := s.SourceLanguage(msg)
	if source == target {
		out <- Result{Text: msg.Text, Source: source}
		return out
	}

	key := Key{Text: msg.Text, Source: source, Target: target}
	if v, ok := s.cache.Get(key); ok {
		s.opts.Metrics.CacheHits.Inc()
		out <- Result{Text: v, Source: source, Translated: true, Cached: true}
		return out
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// воркер мог положить значение между проверкой и захватом mu
	if v, ok := s.cache.Get(key); ok {
		s.opts.Metrics.CacheHits.Inc()
		out <- Result{Text: v, Source: source, Translated: true, Cached: true}
		return out
	}
	if s.closed {
		out <- Result{Text: msg.Text, Source: source, Err: ErrSchedulerClosed}
		return out
	}

	if j, ok := s.inflight[key]; ok {
		j.waiters = append(j.waiters, out)
		s.queue.promote(j, p)
		s.opts.Metrics.Coalesced.Inc()
		return out
	}

	s.opts.Metrics.CacheMisses.Inc()
	j := &job{key: key, priority: p, waiters: []chan Result{out}}
	s.inflight[key] = j
	s.queue.push(j)
	s.opts.Metrics.QueueDepth.Set(float64(s.queue.len()))
	s.cond.Signal()
	return out
}

// RequestFunc вариант Request с колбэком, вызывается из отдельной горутины
func (s *Scheduler) RequestFunc(msg Message, target string, p Priority, onResult func(Result)) {
	ch := s.Request(msg, target, p)
	go func() {
		onResult(<-ch)
	}()
}

// RequestManual ручной перевод всегда идёт в High
func (s *Scheduler) RequestManual(msg Message, target string) <-chan Result {
	return s.Request(msg, target, High)
}

// RequestBatch ждёт сообщения от новых к старым и раздаёт приоритеты по TierPolicy
func (s *Scheduler) RequestBatch(newestFirst []Message, target string) []<-chan Result {
	out := make([]<-chan Result, len(newestFirst))
	for i, msg := range newestFirst {
		out[i] = s.Request(msg, target, s.opts.Tiers.Tier(i))
	}
	return out
}

func (s *Scheduler) Tiers() TierPolicy {
	return s.opts.Tiers
}

func (s *Scheduler) TargetLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func (s *Scheduler) SetTargetLanguage(lang string) {
	if lang == "" {
		return
	}
	s.mu.Lock()
	s.target = lang
	s.mu.Unlock()
}

// InvalidateForLanguageChange переключает язык сессии. Кэш ключуется
// целевым языком, поэтому переводы на прежний язык остаются валидными
// и не удаляются. Возвращает число уже готовых переводов на новый язык.
func (s *Scheduler) InvalidateForLanguageChange(lang string) int {
	s.SetTargetLanguage(lang)
	return s.cache.CountTarget(lang)
}

// Reset сбрасывает кэш при смене учётной записи
func (s *Scheduler) Reset() {
	s.cache.Clear()
}

func (s *Scheduler) Cache() *Cache {
	return s.cache
}

func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		for s.queue.len() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		j := s.queue.pop()
		s.opts.Metrics.QueueDepth.Set(float64(s.queue.len()))
		s.mu.Unlock()

		s.run(j)
	}
}

func (s *Scheduler) run(j *job) {
	ctx, cancel := context.WithTimeout(WithPriority(s.ctx, j.priority), s.opts.CallTimeout)
	s.opts.Metrics.ExternalCalls.Inc()
	text, err := s.translator.Translate(ctx, j.key.Text, j.key.Source, j.key.Target)
	cancel()

	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.Wrap(ErrTranslationUnavailable, "empty translation")
	}

	var res Result
	if err != nil {
		s.opts.Metrics.Failures.Inc()
		s.log.Warn("translation failed",
			zap.String("source", j.key.Source),
			zap.String("target", j.key.Target),
			zap.Error(err))
		res = Result{Text: j.key.Text, Source: j.key.Source, Err: err}
	} else {
		s.cache.Put(j.key, text)
		res = Result{Text: text, Source: j.key.Source, Translated: true}
	}

	s.mu.Lock()
	delete(s.inflight, j.key)
	waiters := j.waiters
	j.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		w <- res
	}
}

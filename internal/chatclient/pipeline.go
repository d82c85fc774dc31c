// Package chatclient клиентская сторона комнаты: история и живой поток
// сводятся в ленту, лента переводится и проверяется на упоминания.
package chatclient

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/internal/mention"
	"github.com/thereayou/bolcha/internal/reconcile"
	"github.com/thereayou/bolcha/internal/translation"
	"github.com/thereayou/bolcha/pkg/logger"
)

var ErrUnknownMessage = errors.New("message not in view")

// Update снимок состояния комнаты после очередного пересчёта
type Update struct {
	RoomID        int64
	Language      string
	View          []reconcile.Message
	Translations  map[int64]string
	Likes         map[int64]reconcile.LikeState
	OnlineCount   int
	Mentioned     []int64
	Notifications []mention.Notification
	HistoryErr    error
	Connected     bool
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = logger.OrNop(l) }
}

// WithNotifier fn вызывается под блокировкой пайплайна, обращаться из него к Pipeline нельзя
func WithNotifier(fn func(mention.Notification)) Option {
	return func(p *Pipeline) { p.notify = fn }
}

// WithUpdateBuffer размер канала Updates; при переполнении старый снимок вытесняется
func WithUpdateBuffer(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.buffer = n
		}
	}
}

type Pipeline struct {
	room     *reconcile.Room
	sched    *translation.Scheduler
	mentions *mention.Evaluator
	log      *zap.Logger
	notify   func(mention.Notification)
	buffer   int

	mu           sync.Mutex
	lang         string
	translations map[int64]string
	requested    map[int64]string // id -> язык, на который уже запрошен перевод
	online       int
	connected    bool
	seeded       bool
	updates      chan Update
}

func NewPipeline(roomID int64, sched *translation.Scheduler, self mention.Identity, opts ...Option) *Pipeline {
	p := &Pipeline{
		room:         reconcile.NewRoom(roomID),
		sched:        sched,
		log:          zap.NewNop(),
		buffer:       16,
		lang:         sched.TargetLanguage(),
		translations: make(map[int64]string),
		requested:    make(map[int64]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("pipeline").With(zap.Int64("room", roomID))
	p.mentions = mention.NewEvaluator(self, mention.WithNotifier(p.notify))
	p.updates = make(chan Update, p.buffer)
	return p
}

func (p *Pipeline) RoomID() int64 { return p.room.ID() }

func (p *Pipeline) Updates() <-chan Update { return p.updates }

func (p *Pipeline) Language() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lang
}

func (p *Pipeline) BeginLoading() {
	p.room.BeginLoading()
}

// SeedHistory ставит историю с количеством лайков и собственными лайками.
// Первая загрузка помечается просмотренной, уведомлений по ней нет.
func (p *Pipeline) SeedHistory(msgs []reconcile.Message, likeTotals map[int64]int, likedIDs []int64) {
	p.mu.Lock()
	first := !p.seeded
	p.seeded = true
	p.mu.Unlock()

	p.room.SeedHistory(msgs)

	p.room.SeedLikes(likeTotals)
	p.room.InitializeLikes(likedIDs)

	if first {
		p.mentions.Prime(p.room.View(nil))
	}
	p.recompute()
}

func (p *Pipeline) HistoryFailed(cause error) error {
	err := p.room.HistoryFailed(cause)
	p.log.Warn("history unavailable, continuing on live events", zap.Error(err))
	p.recompute()
	return err
}

// Apply живое событие; чужие комнаты и повторы ничего не меняют
func (p *Pipeline) Apply(ev reconcile.Event) bool {
	if !p.room.ApplyLiveEvent(ev) {
		return false
	}
	if ev.Type == reconcile.MessageDeleted {
		p.mu.Lock()
		delete(p.translations, ev.MessageID)
		delete(p.requested, ev.MessageID)
		p.mu.Unlock()
	}
	p.recompute()
	return true
}

func (p *Pipeline) SetOnlineCount(n int) {
	p.mu.Lock()
	p.online = n
	p.mu.Unlock()
	p.recompute()
}

func (p *Pipeline) SetConnected(ok bool) {
	p.mu.Lock()
	p.connected = ok
	p.mu.Unlock()
	p.recompute()
}

// SetLanguage кэш остаётся: переводы на новый язык, которые уже есть,
// приходят из него сразу, остальные запрашиваются заново.
func (p *Pipeline) SetLanguage(lang string) {
	if lang == "" {
		return
	}
	ready := p.sched.InvalidateForLanguageChange(lang)

	p.mu.Lock()
	if p.lang == lang {
		p.mu.Unlock()
		return
	}
	p.lang = lang
	p.translations = make(map[int64]string)
	p.requested = make(map[int64]string)
	p.mu.Unlock()

	p.log.Info("target language changed", zap.String("language", lang), zap.Int("cached", ready))
	p.recompute()
}

// TranslateNow ручной перевод одного сообщения вне очереди ленты
func (p *Pipeline) TranslateNow(id int64) error {
	m, ok := p.room.Get(id)
	if !ok {
		return errors.Wrapf(ErrUnknownMessage, "id %d", id)
	}
	lang := p.Language()

	p.mu.Lock()
	p.requested[id] = lang
	p.mu.Unlock()

	ch := p.sched.RequestManual(translation.Message{Text: m.OriginalText, OriginalLanguage: m.OriginalLanguage}, lang)
	go func() {
		p.onTranslated(id, lang, m.OriginalText, <-ch)
	}()
	return nil
}

// Snapshot текущее состояние без уведомлений
func (p *Pipeline) Snapshot() Update {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateLocked(p.room.View(p.translatedLocked), nil)
}

type pending struct {
	msg      reconcile.Message
	priority translation.Priority
}

func (p *Pipeline) recompute() {
	p.mu.Lock()
	view := p.room.View(p.translatedLocked)
	notes := p.mentions.Evaluate(view)

	lang := p.lang
	tiers := p.sched.Tiers()
	var reqs []pending
	for i := len(view) - 1; i >= 0; i-- {
		m := view[i]
		if p.requested[m.ID] == lang {
			continue
		}
		p.requested[m.ID] = lang
		reqs = append(reqs, pending{msg: m, priority: tiers.Tier(len(view) - 1 - i)})
	}

	p.publishLocked(p.updateLocked(view, notes))
	p.mu.Unlock()

	for _, r := range reqs {
		id, text := r.msg.ID, r.msg.OriginalText
		p.sched.RequestFunc(translation.Message{Text: text, OriginalLanguage: r.msg.OriginalLanguage}, lang, r.priority, func(res translation.Result) {
			p.onTranslated(id, lang, text, res)
		})
	}
}

// onTranslated поздние результаты для удалённых сообщений и прежнего языка отбрасываются
func (p *Pipeline) onTranslated(id int64, lang, original string, res translation.Result) {
	p.mu.Lock()
	if lang != p.lang || p.room.IsTombstoned(id) {
		p.mu.Unlock()
		return
	}
	if res.Err != nil {
		// следующий пересчёт запросит снова
		delete(p.requested, id)
		p.mu.Unlock()
		p.log.Debug("translation failed", zap.Int64("message", id), zap.Error(res.Err))
		return
	}
	if !res.Translated || res.Text == original || p.translations[id] == res.Text {
		p.mu.Unlock()
		return
	}
	p.translations[id] = res.Text
	p.mu.Unlock()

	p.recompute()
}

func (p *Pipeline) translatedLocked(id int64) bool {
	_, ok := p.translations[id]
	return ok
}

func (p *Pipeline) updateLocked(view []reconcile.Message, notes []mention.Notification) Update {
	u := Update{
		RoomID:        p.room.ID(),
		Language:      p.lang,
		View:          view,
		Translations:  make(map[int64]string, len(p.translations)),
		Likes:         make(map[int64]reconcile.LikeState),
		OnlineCount:   p.online,
		Mentioned:     p.mentions.Mentioned(),
		Notifications: notes,
		HistoryErr:    p.room.HistoryError(),
		Connected:     p.connected,
	}
	for _, m := range view {
		if t, ok := p.translations[m.ID]; ok {
			u.Translations[m.ID] = t
		}
		if ls := p.room.Like(m.ID); ls != (reconcile.LikeState{}) {
			u.Likes[m.ID] = ls
		}
	}
	return u
}

// publishLocked не блокирует: при полном канале выкидывается самый старый снимок
func (p *Pipeline) publishLocked(u Update) {
	for {
		select {
		case p.updates <- u:
			return
		default:
		}
		select {
		case <-p.updates:
		default:
		}
	}
}

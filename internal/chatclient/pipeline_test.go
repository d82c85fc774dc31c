package chatclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/bolcha/internal/mention"
	"github.com/thereayou/bolcha/internal/reconcile"
	"github.com/thereayou/bolcha/internal/translation"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// countingTranslator переводит в верхний регистр и считает вызовы
type countingTranslator struct {
	mu         sync.Mutex
	calls      map[string]int // target -> вызовы
	priorities map[string]translation.Priority
	fail       func(text string, attempt int) bool
	attempts   map[string]int
}

func newCounting() *countingTranslator {
	return &countingTranslator{
		calls:      make(map[string]int),
		priorities: make(map[string]translation.Priority),
		attempts:   make(map[string]int),
	}
}

func (c *countingTranslator) Translate(ctx context.Context, text, _, target string) (string, error) {
	c.mu.Lock()
	c.calls[target]++
	c.attempts[text]++
	c.priorities[text] = translation.PriorityFrom(ctx)
	attempt := c.attempts[text]
	c.mu.Unlock()

	if c.fail != nil && c.fail(text, attempt) {
		return "", translation.ErrTranslationUnavailable
	}
	return strings.ToUpper(text) + " [" + target + "]", nil
}

func (c *countingTranslator) callsTo(target string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[target]
}

func newPipe(t *testing.T, tr translation.Translator, self mention.Identity, opts ...Option) *Pipeline {
	t.Helper()
	s := translation.NewScheduler(tr, translation.Options{TargetLanguage: "en", Workers: 1})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Close(context.Background()) })
	return NewPipeline(1, s, self, opts...)
}

func msg(id int64, sender, text, lang string, offset time.Duration) reconcile.Message {
	return reconcile.Message{ID: id, RoomID: 1, SenderID: sender, SenderName: sender, OriginalText: text, OriginalLanguage: lang, Timestamp: base.Add(offset)}
}

func created(m reconcile.Message) reconcile.Event {
	return reconcile.Event{Type: reconcile.MessageCreated, RoomID: m.RoomID, Message: m}
}

func waitFor(t *testing.T, p *Pipeline, cond func(Update) bool) Update {
	t.Helper()
	var got Update
	require.Eventually(t, func() bool {
		got = p.Snapshot()
		return cond(got)
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestHistoryTranslatedByTier(t *testing.T) {
	tr := newCounting()
	p := newPipe(t, tr, mention.Identity{UserID: "me"})

	var history []reconcile.Message
	for i := int64(1); i <= 7; i++ {
		history = append(history, msg(i, "bob", fmt.Sprintf("m%d", i), "es", time.Duration(i)*time.Minute))
	}
	p.SeedHistory(history, nil, nil)

	u := waitFor(t, p, func(u Update) bool { return len(u.Translations) == 7 })
	assert.Equal(t, "M7 [en]", u.Translations[7])
	assert.Equal(t, "en", u.Language)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	for i := 3; i <= 7; i++ {
		assert.Equal(t, translation.High, tr.priorities[fmt.Sprintf("m%d", i)], "m%d", i)
	}
	assert.Equal(t, translation.Normal, tr.priorities["m2"])
	assert.Equal(t, translation.Normal, tr.priorities["m1"])
}

func TestSameLanguageNotTranslated(t *testing.T) {
	tr := newCounting()
	p := newPipe(t, tr, mention.Identity{UserID: "me"})

	p.SeedHistory([]reconcile.Message{msg(1, "bob", "hello", "en", 0)}, nil, nil)

	assert.Never(t, func() bool { return tr.callsTo("en") > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Empty(t, p.Snapshot().Translations)
}

func TestLateTranslationForDeletedMessageDropped(t *testing.T) {
	started := make(chan struct{})
	gate := make(chan struct{})
	tr := translation.TranslatorFunc(func(_ context.Context, text, _, _ string) (string, error) {
		close(started)
		<-gate
		return "late " + text, nil
	})
	p := newPipe(t, tr, mention.Identity{UserID: "me"})

	p.Apply(created(msg(5, "bob", "hola", "es", 0)))
	<-started

	p.Apply(reconcile.Event{Type: reconcile.MessageDeleted, RoomID: 1, MessageID: 5})
	close(gate)

	assert.Never(t, func() bool { return len(p.Snapshot().Translations) > 0 }, 150*time.Millisecond, 10*time.Millisecond)
	assert.Empty(t, p.Snapshot().View)
}

func TestLanguageChangeReusesCache(t *testing.T) {
	tr := newCounting()
	p := newPipe(t, tr, mention.Identity{UserID: "me"})
	p.SeedHistory([]reconcile.Message{msg(1, "bob", "hola", "es", 0)}, nil, nil)

	waitFor(t, p, func(u Update) bool { return u.Translations[1] == "HOLA [en]" })

	p.SetLanguage("fr")
	u := waitFor(t, p, func(u Update) bool { return u.Translations[1] == "HOLA [fr]" })
	assert.Equal(t, "fr", u.Language)

	p.SetLanguage("en")
	waitFor(t, p, func(u Update) bool { return u.Translations[1] == "HOLA [en]" })
	assert.Equal(t, 1, tr.callsTo("en"))
	assert.Equal(t, 1, tr.callsTo("fr"))
}

func TestMentionsNotifyOnlyNewLiveMessages(t *testing.T) {
	var mu sync.Mutex
	var notes []mention.Notification
	notify := func(n mention.Notification) {
		mu.Lock()
		notes = append(notes, n)
		mu.Unlock()
	}
	p := newPipe(t, newCounting(), mention.Identity{UserID: "me", DisplayName: "Mika"}, WithNotifier(notify))

	p.SeedHistory([]reconcile.Message{msg(1, "bob", "@mika old news", "en", 0)}, nil, nil)
	p.Apply(created(msg(2, "bob", "@Mika look", "en", time.Minute)))
	p.Apply(created(msg(3, "me", "@Mika note to self", "en", 2*time.Minute)))
	p.Apply(created(msg(2, "bob", "@Mika look", "en", time.Minute)))

	mu.Lock()
	require.Len(t, notes, 1)
	assert.Equal(t, mention.Notification{MessageID: 2, SenderName: "bob", Text: "@Mika look"}, notes[0])
	mu.Unlock()

	assert.Equal(t, []int64{1, 2, 3}, p.Snapshot().Mentioned)
}

func TestLikesFromHistoryAndLive(t *testing.T) {
	p := newPipe(t, newCounting(), mention.Identity{UserID: "me"})
	p.SeedHistory([]reconcile.Message{msg(1, "bob", "hi", "en", 0)}, map[int64]int{1: 3}, []int64{1})

	assert.Equal(t, reconcile.LikeState{TotalLikes: 3, UserLiked: true}, p.Snapshot().Likes[1])

	p.Apply(reconcile.Event{Type: reconcile.LikeUpdated, RoomID: 1, MessageID: 1, TotalLikes: 4})
	assert.Equal(t, reconcile.LikeState{TotalLikes: 4, UserLiked: true}, p.Snapshot().Likes[1])

	unliked := false
	p.Apply(reconcile.Event{Type: reconcile.LikeUpdated, RoomID: 1, MessageID: 1, TotalLikes: 3, UserLiked: &unliked})
	assert.Equal(t, reconcile.LikeState{TotalLikes: 3}, p.Snapshot().Likes[1])
}

func TestStaleHistoryKeepsLiveUnlike(t *testing.T) {
	p := newPipe(t, newCounting(), mention.Identity{UserID: "me"})
	p.BeginLoading()
	p.Apply(created(msg(1, "bob", "hi", "en", 0)))
	unliked := false
	p.Apply(reconcile.Event{Type: reconcile.LikeUpdated, RoomID: 1, MessageID: 1, TotalLikes: 0, UserLiked: &unliked})

	p.SeedHistory([]reconcile.Message{msg(1, "bob", "hi", "en", 0)}, map[int64]int{1: 1}, []int64{1})
	assert.Equal(t, reconcile.LikeState{}, p.Snapshot().Likes[1])
}

func TestHistoryFailureKeepsLiveSync(t *testing.T) {
	p := newPipe(t, newCounting(), mention.Identity{UserID: "me"})
	p.BeginLoading()

	err := p.HistoryFailed(errors.New("connection refused"))
	assert.ErrorIs(t, err, reconcile.ErrHistoryFetch)

	assert.True(t, p.Apply(created(msg(9, "bob", "still here", "en", 0))))
	assert.False(t, p.Apply(reconcile.Event{Type: reconcile.MessageCreated, RoomID: 2, Message: reconcile.Message{ID: 10, RoomID: 2}}))

	u := p.Snapshot()
	require.Len(t, u.View, 1)
	assert.Equal(t, int64(9), u.View[0].ID)
	assert.Error(t, u.HistoryErr)
}

func TestTranslateNowRetriesFailedMessage(t *testing.T) {
	tr := newCounting()
	tr.fail = func(_ string, attempt int) bool { return attempt == 1 }
	p := newPipe(t, tr, mention.Identity{UserID: "me"})

	assert.ErrorIs(t, p.TranslateNow(42), ErrUnknownMessage)

	p.Apply(created(msg(1, "bob", "hola", "es", 0)))
	require.Eventually(t, func() bool { return tr.callsTo("en") == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return len(p.Snapshot().Translations) > 0 }, 50*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, p.TranslateNow(1))
	waitFor(t, p, func(u Update) bool { return u.Translations[1] == "HOLA [en]" })
}

func TestUpdatesKeepNewestWhenFull(t *testing.T) {
	p := newPipe(t, newCounting(), mention.Identity{UserID: "me"}, WithUpdateBuffer(1))

	for i := 1; i <= 5; i++ {
		p.SetOnlineCount(i)
	}
	p.SetConnected(true)

	select {
	case u := <-p.Updates():
		assert.Equal(t, 5, u.OnlineCount)
		assert.True(t, u.Connected)
	default:
		t.Fatal("no update published")
	}
}

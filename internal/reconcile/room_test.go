package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id int64, room int64, offset time.Duration, text string) Message {
	return Message{ID: id, RoomID: room, SenderID: "u1", SenderName: "alice", OriginalText: text, Timestamp: t0.Add(offset)}
}

func ids(view []Message) []int64 {
	out := make([]int64, len(view))
	for i, m := range view {
		out[i] = m.ID
	}
	return out
}

func TestLiveEventBeforeHistoryIsNotLost(t *testing.T) {
	r := NewRoom(1)
	r.BeginLoading()
	assert.Equal(t, Loading, r.State())

	assert.True(t, r.ApplyLiveEvent(Event{Type: MessageCreated, Message: msg(12, 1, 3*time.Second, "live")}))
	assert.Equal(t, Synced, r.State())

	r.SeedHistory([]Message{msg(10, 1, 0, "a"), msg(11, 1, time.Second, "b")})
	assert.Equal(t, []int64{10, 11, 12}, ids(r.View(nil)))
}

func TestDuplicateAcrossHistoryAndLive(t *testing.T) {
	r := NewRoom(1)
	r.SeedHistory([]Message{msg(5, 1, 0, "history copy")})
	r.ApplyLiveEvent(Event{Type: MessageCreated, Message: msg(5, 1, 0, "live copy")})
	r.ApplyLiveEvent(Event{Type: MessageCreated, Message: msg(5, 1, 0, "live copy")})

	view := r.View(nil)
	require.Len(t, view, 1)
	assert.Equal(t, "live copy", view[0].OriginalText)
}

func TestTombstoneBeatsLaterHistory(t *testing.T) {
	r := NewRoom(1)
	r.BeginLoading()
	r.ApplyLiveEvent(Event{Type: MessageDeleted, RoomID: 1, MessageID: 7})
	r.SeedHistory([]Message{msg(7, 1, 0, "deleted"), msg(8, 1, time.Second, "kept")})

	assert.Equal(t, []int64{8}, ids(r.View(nil)))
	assert.True(t, r.IsTombstoned(7))
	_, ok := r.Get(7)
	assert.False(t, ok)

	r.ApplyLiveEvent(Event{Type: MessageCreated, Message: msg(7, 1, 0, "echo")})
	assert.Equal(t, []int64{8}, ids(r.View(nil)))
}

func TestSeedAfterSyncedOnlyBackfills(t *testing.T) {
	r := NewRoom(1)
	r.ApplyLiveEvent(Event{Type: MessageCreated, Message: msg(3, 1, 0, "live")})
	n := r.SeedHistory([]Message{msg(3, 1, 0, "old"), msg(2, 1, -time.Second, "older")})

	assert.Equal(t, 1, n)
	view := r.View(nil)
	assert.Equal(t, []int64{2, 3}, ids(view))
	assert.Equal(t, "live", view[1].OriginalText)
}

func TestOtherRoomsAndZeroIDsIgnored(t *testing.T) {
	r := NewRoom(1)
	assert.False(t, r.ApplyLiveEvent(Event{Type: MessageCreated, Message: msg(1, 2, 0, "elsewhere")}))
	assert.False(t, r.ApplyLiveEvent(Event{Type: MessageCreated, Message: msg(0, 1, 0, "no id")}))
	assert.False(t, r.ApplyLiveEvent(Event{Type: MessageDeleted, RoomID: 2, MessageID: 9}))
	assert.False(t, r.ApplyLiveEvent(Event{Type: "typing"}))
	r.SeedHistory([]Message{msg(4, 2, 0, "wrong room"), msg(0, 1, 0, "no id")})

	assert.Empty(t, r.View(nil))
}

func TestHistoryFailureKeepsRoomLive(t *testing.T) {
	r := NewRoom(1)
	r.BeginLoading()
	err := r.HistoryFailed(errors.New("timeout"))

	assert.ErrorIs(t, err, ErrHistoryFetch)
	assert.Equal(t, Synced, r.State())
	assert.ErrorIs(t, r.HistoryError(), ErrHistoryFetch)

	r.ApplyLiveEvent(Event{Type: MessageCreated, Message: msg(1, 1, 0, "still works")})
	assert.Len(t, r.View(nil), 1)
}

func TestTieWindowPutsUntranslatedFirst(t *testing.T) {
	r := NewRoom(1)
	r.SeedHistory([]Message{msg(1, 1, 0, "first"), msg(2, 1, 500*time.Millisecond, "second")})

	translated := map[int64]bool{2: true}
	assert.Equal(t, []int64{1, 2}, ids(r.View(func(id int64) bool { return translated[id] })))

	translated = map[int64]bool{1: true}
	assert.Equal(t, []int64{2, 1}, ids(r.View(func(id int64) bool { return translated[id] })))

	translated = map[int64]bool{1: true, 2: true}
	assert.Equal(t, []int64{1, 2}, ids(r.View(func(id int64) bool { return translated[id] })))
}

func TestOrderOutsideTieWindowIsChronological(t *testing.T) {
	r := NewRoom(1)
	r.SeedHistory([]Message{msg(2, 1, 2*time.Second, "later"), msg(1, 1, 0, "earlier"), msg(3, 1, 2*time.Second, "same time")})

	assert.Equal(t, []int64{1, 2, 3}, ids(r.View(func(id int64) bool { return id == 1 })))
}

func TestViewIsRederivable(t *testing.T) {
	r := NewRoom(1)
	r.SeedHistory([]Message{msg(1, 1, 0, "a"), msg(2, 1, 100*time.Millisecond, "b"), msg(3, 1, 200*time.Millisecond, "c")})
	lookup := func(id int64) bool { return id == 2 }

	first := ids(r.View(lookup))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ids(r.View(lookup)))
	}
}

func TestLikes(t *testing.T) {
	r := NewRoom(1)
	r.InitializeLikes([]int64{4})
	assert.True(t, r.Like(4).UserLiked)

	yes := true
	r.ApplyLiveEvent(Event{Type: LikeUpdated, MessageID: 5, TotalLikes: 3, UserLiked: &yes})
	assert.Equal(t, LikeState{TotalLikes: 3, UserLiked: true}, r.Like(5))

	// чужой лайк меняет только счётчик
	r.ApplyLiveEvent(Event{Type: LikeUpdated, MessageID: 5, TotalLikes: 4})
	assert.Equal(t, LikeState{TotalLikes: 4, UserLiked: true}, r.Like(5))

	no := false
	r.ApplyLiveEvent(Event{Type: LikeUpdated, MessageID: 5, TotalLikes: 3, UserLiked: &no})
	assert.Equal(t, LikeState{TotalLikes: 3}, r.Like(5))
}

func TestHistoryLikesNeverOverrideLive(t *testing.T) {
	r := NewRoom(1)
	no := false
	r.ApplyLiveEvent(Event{Type: LikeUpdated, MessageID: 1, TotalLikes: 0, UserLiked: &no})
	// чужой лайк: счётчик живой, собственный лайк ещё неизвестен
	r.ApplyLiveEvent(Event{Type: LikeUpdated, MessageID: 2, TotalLikes: 5})

	r.SeedLikes(map[int64]int{1: 1, 2: 4, 3: 2})
	r.InitializeLikes([]int64{1, 2, 3})

	assert.Equal(t, LikeState{}, r.Like(1))
	assert.Equal(t, LikeState{TotalLikes: 5, UserLiked: true}, r.Like(2))
	assert.Equal(t, LikeState{TotalLikes: 2, UserLiked: true}, r.Like(3))
}

func TestVersionMovesOnChange(t *testing.T) {
	r := NewRoom(1)
	v := r.Version()
	r.ApplyLiveEvent(Event{Type: MessageCreated, Message: msg(1, 1, 0, "x")})
	assert.Greater(t, r.Version(), v)

	v = r.Version()
	r.ApplyLiveEvent(Event{Type: MessageCreated, Message: msg(1, 2, 0, "ignored")})
	assert.Equal(t, v, r.Version())
}

package websocket

import (
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	in      chan Envelope
	written []int
	frames  [][]byte
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan Envelope, 16)}
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return io.ErrClosedPipe
	}
	f.written = append(f.written, t)
	if t == websocket.TextMessage {
		f.frames = append(f.frames, data)
	}
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetReadLimit(int64)               {}
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) ReadJSON(v interface{}) error {
	env, ok := <-f.in
	if !ok {
		return io.EOF
	}
	*(v.(*Envelope)) = env
	return nil
}

func (f *fakeConn) textFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.frames...)
}

type recorder struct {
	mu    sync.Mutex
	rooms []RoomID
}

func (r *recorder) RoomChanged(id RoomID) {
	r.mu.Lock()
	r.rooms = append(r.rooms, id)
	r.mu.Unlock()
}

func (r *recorder) calls() []RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RoomID(nil), r.rooms...)
}

func connect(h *Hub, user string) *Client {
	c := NewClient(h, newFakeConn(), Identity{UserID: user, DisplayName: user})
	h.Register(c)
	return c
}

// pending вычитывает всё, что сейчас лежит в очереди клиента
func pending(c *Client) []Envelope {
	var out []Envelope
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			var env Envelope
			json.Unmarshal(frame, &env)
			out = append(out, env)
		default:
			return out
		}
	}
}

func counts(t *testing.T, envs []Envelope) []int {
	t.Helper()
	var out []int
	for _, env := range envs {
		if env.Type != TypeOnlineCountUpdated {
			continue
		}
		var oc OnlineCount
		require.NoError(t, env.Decode(&oc))
		out = append(out, oc.OnlineCount)
	}
	return out
}

func TestJoinSwitchLeaveNotifiesEachTransition(t *testing.T) {
	h := NewHub(HubConf{})
	rec := &recorder{}
	h.AddObserver(rec)

	a := connect(h, "a")
	b := connect(h, "b")

	require.NoError(t, h.JoinRoom(a, 1))
	require.NoError(t, h.JoinRoom(b, 1))
	assert.Equal(t, 2, h.OnlineCount(1))

	require.NoError(t, h.JoinRoom(a, 2))
	assert.Equal(t, 1, h.OnlineCount(1))
	assert.Equal(t, 1, h.OnlineCount(2))
	assert.True(t, a.IsInRoom(2))
	assert.False(t, a.IsInRoom(1))

	// повторный вход в ту же комнату не переход
	require.NoError(t, h.JoinRoom(a, 2))

	h.LeaveRoom(b)
	h.LeaveRoom(b)
	assert.Equal(t, 0, h.OnlineCount(1))

	assert.Equal(t, []RoomID{1, 1, 1, 2, 1}, rec.calls())
}

func TestJoinRequiresRegistration(t *testing.T) {
	h := NewHub(HubConf{})
	c := NewClient(h, newFakeConn(), Identity{UserID: "x"})
	assert.ErrorIs(t, h.JoinRoom(c, 1), ErrNotRegistered)
}

func TestPresenceBroadcastsFreshCounts(t *testing.T) {
	h := NewHub(HubConf{})
	NewPresenceReporter(h)

	a := connect(h, "a")
	b := connect(h, "b")

	require.NoError(t, h.JoinRoom(a, 7))
	assert.Equal(t, []int{1}, counts(t, pending(a)))

	require.NoError(t, h.JoinRoom(b, 7))
	assert.Equal(t, []int{2}, counts(t, pending(a)))
	assert.Equal(t, []int{2}, counts(t, pending(b)))

	h.Unregister(b)
	envs := pending(a)
	assert.Equal(t, []int{1}, counts(t, envs))
	require.NotNil(t, envs[0].RoomID)
	assert.Equal(t, RoomID(7), *envs[0].RoomID)

	// повторное снятие ничего не рассылает
	h.Unregister(b)
	assert.Empty(t, pending(a))
}

func TestPresenceOnRoomSwitchUpdatesBothRooms(t *testing.T) {
	h := NewHub(HubConf{})
	p := NewPresenceReporter(h)

	a := connect(h, "a")
	b := connect(h, "b")
	c := connect(h, "c")
	require.NoError(t, h.JoinRoom(a, 1))
	require.NoError(t, h.JoinRoom(b, 1))
	require.NoError(t, h.JoinRoom(c, 2))
	pending(a)
	pending(b)
	pending(c)

	require.NoError(t, h.JoinRoom(b, 2))
	assert.Equal(t, []int{1}, counts(t, pending(a)))
	assert.Equal(t, []int{2}, counts(t, pending(c)))
	assert.Equal(t, []int{2}, counts(t, pending(b)))

	assert.Equal(t, 1, p.Count(1).OnlineCount)
	assert.Equal(t, 2, p.Count(2).OnlineCount)
}

func TestPresenceEndsOnCurrentCount(t *testing.T) {
	h := NewHub(HubConf{})
	p := NewPresenceReporter(h)

	watcher := connect(h, "w")
	require.NoError(t, h.JoinRoom(watcher, 7))
	pending(watcher)

	// первая рассылка зависает после чтения счётчика
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	p.now = func() time.Time {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			<-release
		}
		return time.Now()
	}

	b := connect(h, "b")
	c := connect(h, "c")
	first := make(chan struct{})
	go func() {
		assert.NoError(t, h.JoinRoom(b, 7))
		close(first)
	}()
	<-entered

	require.NoError(t, h.JoinRoom(c, 7))
	close(release)
	<-first

	assert.Equal(t, []int{2, 3}, counts(t, pending(watcher)))
}

func TestPresenceSurvivesPruneDuringBroadcast(t *testing.T) {
	h := NewHub(HubConf{})
	NewPresenceReporter(h)

	a := connect(h, "a")
	b := connect(h, "b")
	require.NoError(t, h.JoinRoom(a, 1))
	require.NoError(t, h.JoinRoom(b, 1))
	pending(a)

	b.Close()
	c := connect(h, "c")
	require.NoError(t, h.JoinRoom(c, 1))

	// рассылка о входе c снимает b, итоговое число 2
	got := counts(t, pending(a))
	require.NotEmpty(t, got)
	assert.Equal(t, 2, got[len(got)-1])
	assert.Equal(t, 2, h.OnlineCount(1))
}

func TestBroadcastSkipsAndPrunesClosedConnections(t *testing.T) {
	h := NewHub(HubConf{})
	a := connect(h, "a")
	b := connect(h, "b")
	require.NoError(t, h.JoinRoom(a, 1))
	require.NoError(t, h.JoinRoom(b, 1))

	b.Close()
	env, err := NewEnvelope(TypeMessageCreated, RoomRef(1), map[string]string{"text": "hi"})
	require.NoError(t, err)

	res := h.Broadcast(1, env)
	assert.Equal(t, BroadcastResult{Delivered: 1, Skipped: 1}, res)
	assert.Equal(t, 1, h.OnlineCount(1))
	assert.False(t, h.IsConnected("b"))
	assert.Equal(t, 1, h.ConnectionCount())

	got := pending(a)
	require.Len(t, got, 1)
	assert.Equal(t, TypeMessageCreated, got[0].Type)
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	h := NewHub(HubConf{})
	env, _ := NewEnvelope(TypeMessageDeleted, RoomRef(9), nil)
	assert.Equal(t, BroadcastResult{}, h.Broadcast(9, env))
}

func TestDropOldestKeepsNewestFrames(t *testing.T) {
	h := NewHub(HubConf{SendQueueSize: 2})
	a := connect(h, "a")
	require.NoError(t, h.JoinRoom(a, 1))

	for i := 1; i <= 3; i++ {
		env, _ := NewEnvelope(TypeMessageCreated, RoomRef(1), map[string]int{"n": i})
		res := h.Broadcast(1, env)
		assert.Equal(t, 1, res.Delivered)
	}

	var got []int
	for _, env := range pending(a) {
		var p map[string]int
		require.NoError(t, env.Decode(&p))
		got = append(got, p["n"])
	}
	assert.Equal(t, []int{2, 3}, got)
	assert.True(t, a.IsOpen())
}

func TestDisconnectPolicyDropsSlowConsumer(t *testing.T) {
	h := NewHub(HubConf{SendQueueSize: 1, Overflow: Disconnect})
	rec := &recorder{}
	h.AddObserver(rec)
	a := connect(h, "a")
	require.NoError(t, h.JoinRoom(a, 1))

	env, _ := NewEnvelope(TypeMessageCreated, RoomRef(1), nil)
	h.Broadcast(1, env)
	res := h.Broadcast(1, env)

	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 0, res.Delivered)
	assert.False(t, a.IsOpen())
	assert.Equal(t, 0, h.ConnectionCount())
	assert.Equal(t, []RoomID{1, 1}, rec.calls())
}

func TestSweepAndBroadcastAll(t *testing.T) {
	h := NewHub(HubConf{})
	a := connect(h, "a")
	b := connect(h, "b")
	require.NoError(t, h.JoinRoom(a, 1))

	env, _ := NewEnvelope(TypePing, nil, nil)
	res := h.BroadcastAll(env)
	assert.Equal(t, 2, res.Delivered)

	b.Close()
	assert.Equal(t, 1, h.Sweep())
	assert.Equal(t, []string{"a"}, h.OnlineUsers(1))
	assert.True(t, h.IsConnected("a"))

	// закрытое, но ещё не снятое соединение не считается
	a.Close()
	assert.False(t, h.IsConnected("a"))
}

func TestStopClosesClients(t *testing.T) {
	h := NewHub(HubConf{})
	a := connect(h, "a")
	h.Stop()
	assert.False(t, a.IsOpen())
	assert.ErrorIs(t, a.Enqueue([]byte("x")), ErrConnectionClosed)
}

type handlerFunc func(c *Client, msg *Envelope) error

func (f handlerFunc) HandleMessage(c *Client, msg *Envelope) error { return f(c, msg) }

func TestReadPumpHandlesRoomsAndDelegates(t *testing.T) {
	h := NewHub(HubConf{})
	conn := newFakeConn()
	c := NewClient(h, conn, Identity{UserID: "a"})
	h.Register(c)

	var handled []MessageType
	var handledUser string
	handler := handlerFunc(func(c *Client, msg *Envelope) error {
		handled = append(handled, msg.Type)
		handledUser = msg.UserID
		if msg.Type == TypeMessageDelete {
			return ErrUserNotInRoom
		}
		return nil
	})

	conn.in <- Envelope{Type: TypeRoomJoin, RoomID: RoomRef(3)}
	conn.in <- Envelope{Type: TypeMessageSend, UserID: "spoofed"}
	conn.in <- Envelope{Type: TypeMessageDelete}
	conn.in <- Envelope{Type: TypeRoomJoin}
	close(conn.in)

	c.ReadPump(handler)

	assert.Equal(t, []MessageType{TypeMessageSend, TypeMessageDelete}, handled)
	assert.Equal(t, "a", handledUser)
	assert.Equal(t, 0, h.ConnectionCount())
	assert.Equal(t, 0, h.OnlineCount(3))

	var errs int
	for frame := range c.send {
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		if env.Type == TypeError {
			errs++
		}
	}
	assert.Equal(t, 2, errs)
}

func TestWritePumpPreservesOrderAndCloses(t *testing.T) {
	h := NewHub(HubConf{})
	conn := newFakeConn()
	c := NewClient(h, conn, Identity{UserID: "a"})

	require.NoError(t, c.Enqueue([]byte(`{"n":1}`)))
	require.NoError(t, c.Enqueue([]byte(`{"n":2}`)))
	c.Close()

	c.WritePump()

	assert.Equal(t, [][]byte{[]byte(`{"n":1}`), []byte(`{"n":2}`)}, conn.textFrames())
	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, websocket.CloseMessage, conn.written[len(conn.written)-1])
	assert.True(t, conn.closed)
}

func TestParseOverflowPolicy(t *testing.T) {
	assert.Equal(t, Disconnect, ParseOverflowPolicy("disconnect"))
	assert.Equal(t, DropOldest, ParseOverflowPolicy("drop_oldest"))
	assert.Equal(t, DropOldest, ParseOverflowPolicy(""))
}

package chatclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/internal/handlers/dto"
	"github.com/thereayou/bolcha/internal/websocket"
	"github.com/thereayou/bolcha/pkg/logger"
)

const writeWait = 10 * time.Second

type SessionConf struct {
	ServerURL  string // http(s)://host:port
	Token      string
	UserID     string
	Backoff    time.Duration
	MaxBackoff time.Duration
	Dialer     *gorilla.Dialer
	Logger     *zap.Logger
}

func (c *SessionConf) norm() {
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	if c.MaxBackoff < c.Backoff {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = gorilla.DefaultDialer
	}
	c.Logger = logger.OrNop(c.Logger)
}

// Session держит WebSocket к серверу и кормит Pipeline живыми событиями.
// История грузится параллельно с живым потоком при каждом подключении.
type Session struct {
	conf    SessionConf
	pipe    *Pipeline
	history HistoryFetcher
	log     *zap.Logger

	writeMu sync.Mutex
	conn    *gorilla.Conn
}

func NewSession(pipe *Pipeline, history HistoryFetcher, conf SessionConf) *Session {
	conf.norm()
	return &Session{
		conf:    conf,
		pipe:    pipe,
		history: history,
		log:     conf.Logger.Named("session").With(zap.Int64("room", pipe.RoomID())),
	}
}

func (s *Session) Pipeline() *Pipeline { return s.pipe }

func (s *Session) Connected() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn != nil
}

// Run переподключается с нарастающей паузой, пока не отменён ctx
func (s *Session) Run(ctx context.Context) error {
	backoff := s.conf.Backoff
	for {
		connected, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = s.conf.Backoff
		}
		s.log.Warn("connection lost", zap.Error(err), zap.Duration("retry_in", backoff))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		if backoff *= 2; backoff > s.conf.MaxBackoff {
			backoff = s.conf.MaxBackoff
		}
	}
}

func (s *Session) runOnce(ctx context.Context) (bool, error) {
	wsURL, err := s.wsURL()
	if err != nil {
		return false, err
	}
	conn, _, err := s.conf.Dialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		return false, errors.Wrap(err, "dial")
	}
	defer conn.Close()

	s.setConn(conn)
	defer s.setConn(nil)

	if err := s.write(&websocket.Envelope{Type: websocket.TypeRoomJoin, RoomID: websocket.RoomRef(s.pipe.RoomID()), Timestamp: time.Now()}); err != nil {
		return true, err
	}
	s.pipe.SetConnected(true)
	defer s.pipe.SetConnected(false)

	s.pipe.BeginLoading()
	go s.loadHistory(ctx)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var env websocket.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return true, errors.Wrap(err, "read")
		}
		s.dispatch(&env)
	}
}

func (s *Session) loadHistory(ctx context.Context) {
	msgs, likes, err := s.history.FetchHistory(ctx, s.pipe.RoomID())
	if err != nil {
		s.pipe.HistoryFailed(err)
		return
	}
	liked, err := s.history.FetchLikedIDs(ctx)
	if err != nil {
		s.log.Warn("liked messages unavailable", zap.Error(err))
	}
	s.pipe.SeedHistory(msgs, likes, liked)
}

func (s *Session) dispatch(env *websocket.Envelope) {
	switch env.Type {
	case websocket.TypeOnlineCountUpdated:
		var oc websocket.OnlineCount
		if err := env.Decode(&oc); err != nil {
			s.log.Debug("bad online count", zap.Error(err))
			return
		}
		if oc.RoomID == s.pipe.RoomID() {
			s.pipe.SetOnlineCount(oc.OnlineCount)
		}

	case websocket.TypeError:
		var p map[string]string
		env.Decode(&p)
		s.log.Warn("server rejected message", zap.String("error", p["error"]))

	default:
		ev, ok, err := DecodeEvent(env, s.conf.UserID)
		if err != nil {
			s.log.Debug("bad event", zap.String("type", string(env.Type)), zap.Error(err))
			return
		}
		if ok {
			s.pipe.Apply(ev)
		}
	}
}

func (s *Session) Send(text string, replyTo *int64) error {
	env, err := websocket.NewEnvelope(websocket.TypeMessageSend, websocket.RoomRef(s.pipe.RoomID()), dto.MessagePayload{Text: text, ReplyToID: replyTo})
	if err != nil {
		return err
	}
	return s.write(env)
}

func (s *Session) Delete(messageID int64) error {
	env, err := websocket.NewEnvelope(websocket.TypeMessageDelete, websocket.RoomRef(s.pipe.RoomID()), dto.MessageRef{MessageID: messageID})
	if err != nil {
		return err
	}
	return s.write(env)
}

func (s *Session) ToggleLike(messageID int64) error {
	env, err := websocket.NewEnvelope(websocket.TypeLikeToggle, websocket.RoomRef(s.pipe.RoomID()), dto.MessageRef{MessageID: messageID})
	if err != nil {
		return err
	}
	return s.write(env)
}

func (s *Session) write(env *websocket.Envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return websocket.ErrConnectionClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(env)
}

func (s *Session) setConn(conn *gorilla.Conn) {
	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()
}

func (s *Session) wsURL() (string, error) {
	u, err := url.Parse(s.conf.ServerURL)
	if err != nil {
		return "", errors.Wrap(err, "server url")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("token", s.conf.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/thereayou/bolcha/internal/handlers/dto"
	"github.com/thereayou/bolcha/internal/reconcile"
)

// HistoryFetcher источник истории комнаты и собственных лайков
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, roomID int64) ([]reconcile.Message, map[int64]int, error)
	FetchLikedIDs(ctx context.Context) ([]int64, error)
}

// API REST-клиент сервера чата
type API struct {
	base   string
	token  string
	client *http.Client
}

func NewAPI(baseURL, token string, client *http.Client) *API {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{base: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

// FetchHistory последние сообщения комнаты и число лайков по id
func (a *API) FetchHistory(ctx context.Context, roomID int64) ([]reconcile.Message, map[int64]int, error) {
	var page dto.MessagesPage
	if err := a.get(ctx, fmt.Sprintf("/api/rooms/%d/messages", roomID), &page); err != nil {
		return nil, nil, err
	}

	msgs := make([]reconcile.Message, len(page.Messages))
	likes := make(map[int64]int)
	for i, m := range page.Messages {
		msgs[i] = messageFromDTO(m)
		if m.TotalLikes > 0 {
			likes[m.ID] = int(m.TotalLikes)
		}
	}
	return msgs, likes, nil
}

func (a *API) FetchLikedIDs(ctx context.Context) ([]int64, error) {
	var out dto.LikedMessages
	if err := a.get(ctx, "/api/user/likes", &out); err != nil {
		return nil, err
	}
	return out.LikedMessageIDs, nil
}

func (a *API) ListRooms(ctx context.Context) ([]dto.RoomResponse, error) {
	var out struct {
		Rooms []dto.RoomResponse `json:"rooms"`
	}
	if err := a.get(ctx, "/api/rooms", &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

func (a *API) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

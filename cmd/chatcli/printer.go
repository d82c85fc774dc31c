package main

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/thereayou/bolcha/internal/chatclient"
	"github.com/thereayou/bolcha/internal/mention"
	"github.com/thereayou/bolcha/internal/reconcile"
)

// printer печатает ленту построчно: новые сообщения, поздние переводы и удаления
type printer struct {
	mu        sync.Mutex
	w         io.Writer
	shown     map[int64]string // id -> последний напечатанный перевод
	online    int
	connected bool
	lang      string
	histErr   bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, shown: make(map[int64]string)}
}

func (p *printer) render(u chatclient.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u.Connected != p.connected {
		p.connected = u.Connected
		if u.Connected {
			fmt.Fprintln(p.w, "-- connected")
		} else {
			fmt.Fprintln(p.w, "-- disconnected, reconnecting")
		}
	}
	if u.Language != p.lang {
		p.lang = u.Language
		fmt.Fprintf(p.w, "-- translating into %s\n", u.Language)
	}
	if u.OnlineCount != p.online {
		p.online = u.OnlineCount
		fmt.Fprintf(p.w, "-- %d online\n", u.OnlineCount)
	}
	if u.HistoryErr != nil && !p.histErr {
		p.histErr = true
		fmt.Fprintf(p.w, "-- history unavailable: %v\n", u.HistoryErr)
	}

	mentioned := make(map[int64]bool, len(u.Mentioned))
	for _, id := range u.Mentioned {
		mentioned[id] = true
	}

	visible := make(map[int64]bool, len(u.View))
	for _, m := range u.View {
		visible[m.ID] = true
		tr, hasTr := u.Translations[m.ID]
		prev, seen := p.shown[m.ID]
		switch {
		case !seen:
			p.line(m, u.Likes[m.ID], mentioned[m.ID])
			if hasTr {
				fmt.Fprintf(p.w, "      => %s\n", tr)
			}
			p.shown[m.ID] = tr
		case hasTr && tr != prev:
			fmt.Fprintf(p.w, "  #%d => %s\n", m.ID, tr)
			p.shown[m.ID] = tr
		}
	}

	var gone []int64
	for id := range p.shown {
		if !visible[id] {
			gone = append(gone, id)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	for _, id := range gone {
		delete(p.shown, id)
		fmt.Fprintf(p.w, "-- #%d deleted\n", id)
	}
}

func (p *printer) line(m reconcile.Message, likes reconcile.LikeState, mentioned bool) {
	mark := " "
	if mentioned {
		mark = "*"
	}
	fmt.Fprintf(p.w, "%s#%d %s %s: %s", mark, m.ID, m.Timestamp.Local().Format("15:04"), m.SenderName, m.OriginalText)
	if m.ReplyTo != nil {
		fmt.Fprintf(p.w, " (re #%d %s)", m.ReplyTo.ID, m.ReplyTo.SenderName)
	}
	if likes.TotalLikes > 0 {
		fmt.Fprintf(p.w, " [+%d]", likes.TotalLikes)
	}
	fmt.Fprintln(p.w)
}

func (p *printer) notify(n mention.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "!! %s mentioned you: %s\n", n.SenderName, n.Text)
}

func (p *printer) errorf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "error: "+format+"\n", args...)
}

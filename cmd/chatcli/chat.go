package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/internal/chatclient"
	"github.com/thereayou/bolcha/internal/mention"
	"github.com/thereayou/bolcha/internal/translation"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join a room and chat",
	Long: `Join a room and chat. Lines are sent as messages, except:
  /lang <code>       switch the translation language
  /translate <id>    translate one message right now
  /like <id>         toggle a like
  /delete <id>       delete your message
  /reply <id> <text> reply to a message
  /quit              leave`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	flags := chatCmd.Flags()
	flags.Int64("room", 1, "room id")
	flags.String("language", "ja", "language to translate messages into")
	flags.String("name", "", "display name, used to find mentions")
	flags.String("user-id", "", "own user id, used for like state")
	flags.Int("workers", 2, "concurrent translation calls")
	flags.Int("high-tier", 5, "newest messages translated with high priority")
	flags.Int("normal-tier", 10, "following messages translated with normal priority")
	flags.StringSlice("translator", nil, "translator endpoints (default: the server's /api/translate)")

	viper.BindPFlag(roomKey, flags.Lookup("room"))
	viper.BindPFlag(languageKey, flags.Lookup("language"))
	viper.BindPFlag(displayNameKey, flags.Lookup("name"))
	viper.BindPFlag(userIDKey, flags.Lookup("user-id"))
	viper.BindPFlag(workersKey, flags.Lookup("workers"))
	viper.BindPFlag(highTierKey, flags.Lookup("high-tier"))
	viper.BindPFlag(normalTierKey, flags.Lookup("normal-tier"))
	viper.BindPFlag(translatorKey, flags.Lookup("translator"))
	viper.SetDefault(roomKey, 1)
	viper.SetDefault(languageKey, "ja")
}

func runChat(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	server := strings.TrimRight(viper.GetString(serverKey), "/")
	token := viper.GetString(tokenKey)
	if token == "" {
		return errors.New("token is required (--token or CHATCLI_TOKEN)")
	}

	urls := viper.GetStringSlice(translatorKey)
	if len(urls) == 0 {
		urls = []string{server + "/api/translate"}
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	translator := translation.NewHTTPTranslator(urls, translation.HTTPOptions{Header: header, Logger: log})

	sched := translation.NewScheduler(translator, translation.Options{
		Workers:        viper.GetInt(workersKey),
		Tiers:          translation.TierPolicy{HighCount: viper.GetInt(highTierKey), NormalCount: viper.GetInt(normalTierKey)},
		TargetLanguage: viper.GetString(languageKey),
		Logger:         log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		log.Warn("translation cache not restored", zap.Error(err))
	}
	defer sched.Close(context.Background())

	out := newPrinter(cmd.OutOrStdout())
	self := mention.Identity{UserID: viper.GetString(userIDKey), DisplayName: viper.GetString(displayNameKey)}
	pipe := chatclient.NewPipeline(viper.GetInt64(roomKey), sched, self,
		chatclient.WithLogger(log),
		chatclient.WithNotifier(out.notify),
	)
	session := chatclient.NewSession(pipe, chatclient.NewAPI(server, token, nil), chatclient.SessionConf{
		ServerURL: server,
		Token:     token,
		UserID:    self.UserID,
		Logger:    log,
	})

	go session.Run(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-pipe.Updates():
				out.render(u)
			}
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleLine(session, strings.TrimSpace(line))
			if err != nil {
				out.errorf("%v", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func handleLine(s *chatclient.Session, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, s.Send(line, nil)
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/lang":
		if len(fields) != 2 {
			return false, errors.New("usage: /lang <code>")
		}
		s.Pipeline().SetLanguage(fields[1])
		return false, nil

	case "/translate", "/like", "/delete":
		if len(fields) != 2 {
			return false, errors.Errorf("usage: %s <id>", fields[0])
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return false, errors.Wrap(err, "message id")
		}
		switch fields[0] {
		case "/translate":
			return false, s.Pipeline().TranslateNow(id)
		case "/like":
			return false, s.ToggleLike(id)
		default:
			return false, s.Delete(id)
		}

	case "/reply":
		if len(fields) < 3 {
			return false, errors.New("usage: /reply <id> <text>")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return false, errors.Wrap(err, "message id")
		}
		return false, s.Send(strings.Join(fields[2:], " "), &id)
	}
	return false, errors.Errorf("unknown command %s", fields[0])
}

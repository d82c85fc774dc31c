package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/pkg/logger"
)

var cfgFile string

const (
	serverKey      = "server"
	tokenKey       = "token"
	roomKey        = "room"
	languageKey    = "language"
	displayNameKey = "display_name"
	userIDKey      = "user_id"
	workersKey     = "workers"
	highTierKey    = "high_tier"
	normalTierKey  = "normal_tier"
	translatorKey  = "translator_urls"
	logLevelKey    = "log_level"
)

var rootCmd = &cobra.Command{
	Use:   "chatcli",
	Short: "Terminal client for the translated chat",
	Long: `chatcli joins a chat room, keeps the feed in sync with the server
and shows every message translated into your language.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.chatcli.yaml)")
	flags.String("server", "http://localhost:8080", "chat server base URL")
	flags.String("token", "", "JWT issued by the auth service")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")

	viper.BindPFlag(serverKey, flags.Lookup("server"))
	viper.BindPFlag(tokenKey, flags.Lookup("token"))
	viper.BindPFlag(logLevelKey, flags.Lookup("log-level"))
	viper.SetDefault(serverKey, "http://localhost:8080")
	viper.SetDefault(logLevelKey, "warn")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".chatcli")
	}

	viper.SetEnvPrefix("chatcli")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}

func newLogger() *zap.Logger {
	return logger.NewWithWriter(viper.GetString(logLevelKey), os.Stderr)
}

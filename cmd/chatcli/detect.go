package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thereayou/bolcha/internal/chatclient"
	"github.com/thereayou/bolcha/internal/langdetect"
)

var detectCmd = &cobra.Command{
	Use:   "detect <text>",
	Short: "Print the language code the client would assign to text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), langdetect.Detect(strings.Join(args, " "), ""))
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List rooms with their online count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		api := chatclient.NewAPI(viper.GetString(serverKey), viper.GetString(tokenKey), nil)
		rooms, err := api.ListRooms(ctx)
		if err != nil {
			return err
		}
		for _, r := range rooms {
			admin := ""
			if r.AdminOnly {
				admin = " (admin only)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s%s\t%d online\n", r.ID, r.Name, admin, r.OnlineCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd, roomsCmd)
}

package command

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"blackjack/cmd/cli/command/client"
	"blackjack/internal/microservices/http-api/dto"
)

var (
	apiURL    string
	statsLive bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a server's statistics",
	Long:  `Fetch the running totals from a server's reporting API. With --live, keep printing every pushed update.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		c := client.NewHTTPClient(apiURL)
		out := cmd.OutOrStdout()
		if statsLive {
			return c.FollowLive(ctx, func(s dto.StatsResponse) { printStats(out, s) })
		}

		s, err := c.Stats(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch stats: %w", err)
		}
		printStats(out, *s)
		return nil
	},
}

func printStats(out io.Writer, s dto.StatsResponse) {
	fmt.Fprintf(out, "%s  up %ds  served %d  active %d  rounds %d (W %d / L %d / P %d)  win rate %.1f%%  aborted %d  rejected %d\n",
		s.ServerName, s.UptimeSeconds, s.Served, s.Active, s.Rounds, s.Wins, s.Losses, s.Pushes,
		100*s.WinRate, s.Aborted, s.Rejected)
}

func init() {
	statsCmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "stats API base URL")
	statsCmd.Flags().BoolVar(&statsLive, "live", false, "follow the live feed")
}

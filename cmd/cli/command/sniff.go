package command

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"blackjack/cmd/cli/command/client"
	udp "blackjack/internal/microservices/udp-server"
)

var sniffDuration time.Duration

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Print every packet on the discovery port",
	Long: `Listen on the discovery port and print each datagram: decoded when it is a
valid offer, as hex otherwise. New servers are highlighted, and the servers
still announcing are listed on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if sniffDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, sniffDuration)
			defer cancel()
		}

		out := cmd.OutOrStdout()
		table := udp.NewServerTable(5 * time.Second)
		done := make(chan struct{})
		defer close(done)
		go table.StartCleanupRoutine(time.Second, done)

		fmt.Fprintf(out, "Sniffing UDP port %d...\n", discoveryPort)
		err := client.NewDiscoveryClient(discoveryPort).Sniff(ctx, func(d udp.Datagram) {
			ts := d.ReceivedAt.Format("15:04:05.000")
			ann, ok := udp.ParseAnnouncement(d)
			if !ok {
				fmt.Fprintf(out, "%s %-21s %d bytes  %s\n", ts, d.From, len(d.Data), hex.EncodeToString(d.Data))
				return
			}
			line := fmt.Sprintf("%s %-21s offer %q tcp port %d", ts, d.From, ann.ServerName, ann.Port)
			if table.Seen(ann) {
				line = color.GreenString("%s  (new)", line)
			}
			fmt.Fprintln(out, line)
		})

		servers := table.GetAll()
		fmt.Fprintf(out, "\n%d server(s) announcing:\n", len(servers))
		for _, s := range servers {
			fmt.Fprintf(out, "  %-21s %-32s %d offers since %s\n",
				s.GameAddr(), s.ServerName, s.Offers, s.FirstSeen.Format("15:04:05"))
		}
		return err
	},
}

func init() {
	sniffCmd.Flags().DurationVarP(&sniffDuration, "duration", "d", 0, "stop after this long (0 runs until Ctrl+C)")
}

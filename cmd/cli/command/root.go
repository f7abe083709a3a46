package command

// root.go defines the root command for the blackjack client and its global
// flags.

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"blackjack/cmd/cli/command/client"
	udp "blackjack/internal/microservices/udp-server"
)

var (
	discoveryPort int           // UDP port offers arrive on
	serverAddr    string        // skip discovery and dial this host:port
	ioTimeout     time.Duration // bound for every read and write on the game connection
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blackjack",
	Short: "blackjack - play against a blackjack server on your network",
	Long: `blackjack finds game servers through their UDP offers and plays rounds
against them over TCP. It can also:
- run a fleet of bots against a server
- print every packet seen on the discovery port
- show a server's running statistics

Use "blackjack command --help" to see the flags of each command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err) // Print error to standard error
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags = available to all subcommands
	rootCmd.PersistentFlags().IntVar(&discoveryPort, "discovery-port", udp.DefaultDiscoveryPort, "UDP port to listen on for server offers")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "game server host:port (skips discovery)")
	rootCmd.PersistentFlags().DurationVar(&ioTimeout, "timeout", 60*time.Second, "read/write timeout on the game connection")

	rootCmd.AddCommand(playCmd, stressCmd, sniffCmd, statsCmd)
}

// resolveServer returns serverAddr or waits for the first offer.
func resolveServer(ctx context.Context, announce func(udp.Announcement)) (string, error) {
	if serverAddr != "" {
		return serverAddr, nil
	}
	ann, err := client.NewDiscoveryClient(discoveryPort).Discover(ctx)
	if err != nil {
		return "", err
	}
	if announce != nil {
		announce(ann)
	}
	return ann.GameAddr(), nil
}

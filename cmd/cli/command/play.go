package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"blackjack/cmd/cli/command/client"
	"blackjack/internal/game"
	udp "blackjack/internal/microservices/udp-server"
	"blackjack/internal/protocol"
)

var (
	playRounds int
	playLoop   bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play blackjack interactively",
	Long: `Wait for a server offer (or use --server), ask how many rounds to play and
play them, one hit/stand decision at a time. Prints the win rate at the end.

With --loop the client goes back to discovery after every session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		for {
			if err := playSession(ctx, in, out); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					return nil
				}
				if !playLoop {
					return err
				}
				color.New(color.FgRed).Fprintf(out, "session failed: %v\n", err)
			}
			if !playLoop {
				return nil
			}
		}
	},
}

func playSession(ctx context.Context, in *bufio.Reader, out io.Writer) error {
	if serverAddr == "" {
		fmt.Fprintf(out, "Listening for offers on UDP port %d...\n", discoveryPort)
	}
	addr, err := resolveServer(ctx, func(a udp.Announcement) {
		fmt.Fprintf(out, "Received offer from %s at %s\n", color.CyanString(a.ServerName), a.GameAddr())
	})
	if err != nil {
		return err
	}

	rounds := playRounds
	if rounds == 0 {
		if rounds, err = askRounds(in, out); err != nil {
			return err
		}
	}

	gc, err := client.Dial(ctx, addr, ioTimeout)
	if err != nil {
		return err
	}
	defer gc.Close()

	tally, err := gc.Play(ctx, uint8(rounds), promptStrategy(in, out), printEvent(out))
	fmt.Fprintf(out, "\nFinished %d of %d rounds: %d won, %d lost, %d pushed. Win rate %.1f%%\n",
		tally.Rounds, rounds, tally.Wins, tally.Losses, tally.Pushes, 100*tally.WinRate())
	return err
}

func askRounds(in *bufio.Reader, out io.Writer) (int, error) {
	for {
		fmt.Fprint(out, "How many rounds (1-255)? ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return 0, err
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr == nil && n >= 1 && n <= 255 {
			return n, nil
		}
		fmt.Fprintln(out, "Please enter a number between 1 and 255.")
		if err != nil {
			return 0, err
		}
	}
}

// promptStrategy asks the human at the terminal. End of input stands.
func promptStrategy(in *bufio.Reader, out io.Writer) client.Strategy {
	return client.StrategyFunc(func(player []game.Card, _ game.Card) protocol.Action {
		for {
			fmt.Fprint(out, "Hit or stand? [h/s] ")
			line, err := in.ReadString('\n')
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "h", "hit":
				return protocol.ActionHit
			case "s", "stand":
				return protocol.ActionStand
			}
			if err != nil {
				return protocol.ActionStand
			}
		}
	})
}

func printEvent(out io.Writer) func(client.Event) {
	return func(ev client.Event) {
		switch ev.Kind {
		case client.PlayerCard:
			if len(ev.Player) == 1 {
				fmt.Fprintf(out, "\n--- Round %d ---\n", ev.Round)
			}
			fmt.Fprintf(out, "You:    %s\n", client.HandString(ev.Player))
		case client.DealerCard:
			fmt.Fprintf(out, "Dealer: %s\n", client.HandString(ev.Dealer))
		case client.RoundOver:
			fmt.Fprintf(out, "Last card %s\n", client.CardString(ev.Card))
			fmt.Fprintln(out, client.ResultString(ev.Result))
		}
	}
}

func init() {
	playCmd.Flags().IntVarP(&playRounds, "rounds", "r", 0, "rounds to request (asks when 0)")
	playCmd.Flags().BoolVar(&playLoop, "loop", false, "return to discovery after each session")
}

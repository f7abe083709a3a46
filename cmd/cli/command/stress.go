package command

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"blackjack/cmd/cli/command/client"
	"blackjack/internal/game"
	"blackjack/internal/protocol"
)

var (
	stressBots    int
	stressWait    time.Duration
	stressRandom  float64
	stressMaxRnds int
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run concurrent bots against a server",
	Long: `Start --bots clients at once. Each one finds a server (or uses --server),
requests 1 to --max-rounds rounds and plays them, hitting below 17. With
--random a share of decisions is a coin flip instead. Prints the combined results.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, stressWait)
		defer cancel()

		var (
			mu     sync.Mutex
			total  client.Tally
			failed int
			wg     sync.WaitGroup
		)
		start := time.Now()
		for i := 0; i < stressBots; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				t, err := runBot(ctx)
				mu.Lock()
				defer mu.Unlock()
				total.Add(t)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "bot %d: %v\n", id, err)
				}
			}(i)
		}
		wg.Wait()

		fmt.Fprintf(cmd.OutOrStdout(), "%d bots, %d failed, %d rounds in %s\n",
			stressBots, failed, total.Rounds, time.Since(start).Round(time.Millisecond))
		fmt.Fprintf(cmd.OutOrStdout(), "wins %d  losses %d  pushes %d  win rate %.1f%%\n",
			total.Wins, total.Losses, total.Pushes, 100*total.WinRate())
		return nil
	},
}

func runBot(ctx context.Context) (client.Tally, error) {
	addr, err := resolveServer(ctx, nil)
	if err != nil {
		return client.Tally{}, err
	}
	gc, err := client.Dial(ctx, addr, ioTimeout)
	if err != nil {
		return client.Tally{}, err
	}
	defer gc.Close()

	rounds := uint8(1 + rand.IntN(max(stressMaxRnds, 1)))
	return gc.Play(ctx, rounds, botStrategy(stressRandom), nil)
}

// botStrategy hits below 17, except that a share of decisions is random.
func botStrategy(randomShare float64) client.Strategy {
	house := client.HitBelow(game.DealerStandsOn)
	return client.StrategyFunc(func(player []game.Card, up game.Card) protocol.Action {
		if rand.Float64() < randomShare {
			if rand.IntN(2) == 0 {
				return protocol.ActionHit
			}
			return protocol.ActionStand
		}
		return house.Decide(player, up)
	})
}

func init() {
	stressCmd.Flags().IntVarP(&stressBots, "bots", "n", 10, "number of concurrent bots")
	stressCmd.Flags().IntVar(&stressMaxRnds, "max-rounds", 3, "each bot requests 1 to this many rounds")
	stressCmd.Flags().Float64Var(&stressRandom, "random", 0, "share of decisions made at random (0-1)")
	stressCmd.Flags().DurationVar(&stressWait, "deadline", 2*time.Minute, "give up after this long")
}

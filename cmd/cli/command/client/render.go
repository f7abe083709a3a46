package client

import (
	"strings"

	"github.com/fatih/color"

	"blackjack/internal/game"
	"blackjack/internal/protocol"
)

var (
	redCard   = color.New(color.FgRed, color.Bold)
	blackCard = color.New(color.FgWhite, color.Bold)
)

// CardString renders a card in its suit colour.
func CardString(c game.Card) string {
	if c.Suit.Red() {
		return redCard.Sprint(c.String())
	}
	return blackCard.Sprint(c.String())
}

// HandString renders cards followed by the hand total.
func HandString(cards []game.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = CardString(c)
	}
	total, soft := game.HandValue(cards)
	suffix := ""
	if soft {
		suffix = " soft"
	}
	return strings.Join(parts, " ") + color.New(color.Faint).Sprintf("  (%d%s)", total, suffix)
}

// ResultString renders a result code for the player.
func ResultString(r protocol.Result) string {
	switch r {
	case protocol.ResultWin:
		return color.GreenString("You win!")
	case protocol.ResultLoss:
		return color.RedString("You lose.")
	case protocol.ResultPush:
		return color.YellowString("Push.")
	default:
		return r.String()
	}
}

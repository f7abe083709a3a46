package main

import "blackjack/cmd/cli/command"

func main() {
	command.Execute()
}

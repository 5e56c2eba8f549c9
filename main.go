package main

import "market-align/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/okian/placar/internal/cli"

func main() {
	cli.Execute()
}

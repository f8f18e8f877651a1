package main

import "grounder/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/driftwood-io/driftwood/cli"

func main() {
	cli.Execute()
}

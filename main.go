package main

import "github.com/chaintex/trade-processor/cmd"

func main() {
	cmd.Execute()
}

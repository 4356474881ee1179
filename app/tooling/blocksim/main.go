package main

import "github.com/blocksim/blocksim/app/tooling/blocksim/cmd"

func main() {
	cmd.Execute()
}

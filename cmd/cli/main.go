package main

import "github.com/angelospk/subdivx-dl/cmd/cli/cmd"

func main() {
	cmd.Execute()
}

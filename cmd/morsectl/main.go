package main

import "github.com/moffa90/go-morsectl/cmd/morsectl/cmd"

func main() {
	cmd.Execute()
}

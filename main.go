package main

import "github.com/quorumtrade/poolarb/cmd"

func main() {
	cmd.Execute()
}

package main

import cmd "github.com/toozej/go-thoroughbred/cmd/go-thoroughbred"

func main() {
	cmd.Execute()
}

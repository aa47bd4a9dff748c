package main

import "github.com/kentsubra71/keystone/cmd/cli"

func main() {
	cli.Execute()
}

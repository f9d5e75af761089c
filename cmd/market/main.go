package main

import (
	"github.com/bookstore/services/market/cmd/market/commands"
)

var (
	version = "dev" // will be set during build
)

func main() {
	commands.Version = version
	commands.Execute()
}

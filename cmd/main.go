package main

import (
	"signalforge/internal/cli"
)

func main() {
	cli.Run()
}

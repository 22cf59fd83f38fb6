package main

import "github.com/vietddude/overseer/internal/cli"

func main() {
	cli.Execute()
}

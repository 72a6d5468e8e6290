package main

import "github.com/vietddude/trendcore/internal/cli"

func main() {
	cli.Execute()
}

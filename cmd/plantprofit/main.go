package main

import "plantprofit/internal/cli"

func main() {
	cli.Execute()
}

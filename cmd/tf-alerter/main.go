package main

import (
	"tf-alerter/internal/cli"
)

func main() {
	cli.Execute()
}

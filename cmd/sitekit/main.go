package main

import (
	"github.com/sitekit/provision/internal/cli"
)

func main() {
	cli.Execute()
}

package main

import (
	"github/meridian/algo-wallet/cmd"
)

func main() {
	cmd.Execute()
}

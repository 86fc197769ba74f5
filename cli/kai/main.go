package main

import (
	"os"

	kaicmder "github.com/keboola/kai-client-go/cmd/kai"
)

func main() {
	cmd := kaicmder.NewKaiCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

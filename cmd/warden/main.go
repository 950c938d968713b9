package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/wardenhq/warden/cmd/warden/commands"
	"github.com/wardenhq/warden/internal/approver"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		if errors.Is(err, approver.ErrTerminated) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

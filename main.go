package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ziyad188/sentinel-bot-webwic/internal/api"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}

// exitOnError prints the error and exits with a code reflecting its class:
// 2 for an expired session (login required), 1 for everything else.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if errors.Is(err, api.ErrSessionExpired) {
		os.Exit(2)
	}

	os.Exit(1)
}

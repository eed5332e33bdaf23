package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"fetalscan/internal/lifecycle"
	"fetalscan/internal/report"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes failures scripts commonly branch on.
func exitCode(err error) int {
	var validationErr *report.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return 2
	case errors.Is(err, lifecycle.ErrNotFound):
		return 3
	case errors.Is(err, lifecycle.ErrNotConfirmed):
		return 4
	default:
		return 1
	}
}

package main

import (
	"fmt"

	"fetalscan/internal/lifecycle"
)

func confirmationRequired(action string) error {
	return fmt.Errorf("%w: pass --yes to %s", lifecycle.ErrNotConfirmed, action)
}

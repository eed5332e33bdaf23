package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON prints v for --json callers. HTML escaping is off so data URLs
// and clinic text round-trip unchanged.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

const timeLayoutJSON = time.RFC3339Nano

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

// commandTimeout bounds one-shot Bot API calls made from the CLI.
func commandTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 15*time.Second)
}

// writeJSON prints v as indented JSON on the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

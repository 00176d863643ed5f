package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

var outputFormat string

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "json", "output format: json or yaml")
}

// printResult writes a command result to stdout in the selected format.
func printResult(v any) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode json output")
		}
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer func() { _ = enc.Close() }()
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml output")
		}
	default:
		return eris.Errorf("unsupported output format: %s", outputFormat)
	}
	return nil
}

// Command schema-generator writes the JSON schema of deckclock.yml so editors
// can validate and complete configuration files.
package main

import (
	"os"
	"path/filepath"

	"github.com/grovetools/deckclock/config"
	"github.com/grovetools/deckclock/logging"
	flag "github.com/spf13/pflag"
)

func main() {
	output := flag.StringP("output", "o", filepath.Join("schema", "deckclock.schema.json"), "Output file")
	flag.Parse()

	logger := logging.NewLogger("schema-generator")

	schemaBytes, err := config.GenerateSchema()
	if err != nil {
		logger.WithError(err).Fatal("Error generating schema")
	}
	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		logger.WithError(err).Fatal("Error creating schema directory")
	}
	if err := os.WriteFile(*output, append(schemaBytes, '\n'), 0644); err != nil {
		logger.WithError(err).Fatal("Error writing schema file")
	}
	logger.WithField("path", *output).Info("Generated configuration schema")
}

package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"gopkg.in/yaml.v3"
)

const schemaName = "settings.schema.json"

func main() {
	schemaJSON, err := config.Schema()
	if err != nil {
		log.Fatalf("Failed to generate schema: %v", err)
	}

	schemaPath := filepath.Join(filepath.Dir(config.DefaultPath), schemaName)

	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		log.Fatalf("Failed to write schema to file: %v", err)
	}

	// an existing settings file is never overwritten
	if _, err := os.Stat(config.DefaultPath); os.IsNotExist(err) {
		yamlBytes, err := yaml.Marshal(config.Default())
		if err != nil {
			log.Fatalf("Failed to marshal sample settings to yaml: %v", err)
		}

		yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)

		if err := os.WriteFile(config.DefaultPath, yamlBytes, 0644); err != nil {
			log.Fatalf("Failed to write sample settings to file: %v", err)
		}

		log.Printf("Sample settings generated at %s", config.DefaultPath)
	}

	log.Printf("Schema generated at %s", schemaPath)
}

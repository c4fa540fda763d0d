package store

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ExportExchange serializes an exchange to JSON and writes it to a
// timestamped file under dir. Returns the path to the saved file.
func ExportExchange(dir string, exchange LLMExchange) (string, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	// Dashes instead of colons for filesystem compatibility; the id keeps
	// exchanges from the same second apart
	filename := fmt.Sprintf("%s-%s-%d.json",
		exchange.Timestamp.Format("2006-01-02T15-04-05"), exchange.Mode, exchange.ID)
	path := filepath.Join(dir, filename)

	// Serialize exchange to JSON with indentation for readability
	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}

package db

import (
	"encoding/json"
	"fmt"
	"os"

	"cafes/internal/model"
)

// LoadSeedFile reads a JSON array of cafes in the same shape the API
// returns. Any "id" keys are ignored.
func LoadSeedFile(path string) ([]model.NewCafe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var cafes []model.NewCafe
	if err := json.Unmarshal(data, &cafes); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return cafes, nil
}

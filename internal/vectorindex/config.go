package vectorindex

import (
	"encoding/json"
	"time"

	"memoria/internal/fsstore"
)

// IndexConfig is .memory_index_config.json: records which backend is
// active, its dimensions, and when it was last rebuilt. LoadConfig and
// SaveConfig only read and write the file; nothing in the engine calls
// them, and the backend is chosen once at startup by cmd/engine.
type IndexConfig struct {
	Backend     string    `json:"backend"` // "postgres" | "linear"
	Dimensions  int       `json:"dimensions"`
	LastRebuilt time.Time `json:"last_rebuilt"`
}

func LoadConfig(store *fsstore.Store) (IndexConfig, error) {
	data, err := store.ReadFile(store.IndexConfigPath())
	if err != nil {
		return IndexConfig{}, err
	}
	if len(data) == 0 {
		return IndexConfig{}, nil
	}
	var cfg IndexConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return IndexConfig{}, err
	}
	return cfg, nil
}

func SaveConfig(store *fsstore.Store, cfg IndexConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return store.WriteFile(store.IndexConfigPath(), data)
}

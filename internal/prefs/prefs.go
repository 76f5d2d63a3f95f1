// Package prefs persists dashboard preferences between runs.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const prefsFile = "prefs.json"

// Prefs are UI choices remembered across sessions.
type Prefs struct {
	TrendWeeks     int    `json:"trend_weeks,omitempty"`
	LastImportPath string `json:"last_import_path,omitempty"`
	Tab            int    `json:"tab,omitempty"`
}

// Path returns the preferences file location, creating its directory.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "recruitmetrics")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, prefsFile), nil
}

// Save writes p to the default prefs path.
func Save(p Prefs) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(path, p)
}

// SaveTo writes p atomically to path.
func SaveTo(path string, p Prefs) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load returns the stored preferences; a missing file yields the zero value.
func Load() (Prefs, error) {
	path, err := Path()
	if err != nil {
		return Prefs{}, err
	}
	return LoadFrom(path)
}

// LoadFrom reads prefs from path. A missing file yields zero Prefs.
func LoadFrom(path string) (Prefs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Prefs{}, nil
		}
		return Prefs{}, err
	}
	var p Prefs
	if err := json.Unmarshal(data, &p); err != nil {
		return Prefs{}, err
	}
	return p, nil
}

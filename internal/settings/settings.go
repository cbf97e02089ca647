// Package settings persists the two pieces of operator configuration the
// console needs across restarts: which task-list files are loaded, and the
// base name new data files are written under.
//
// Grounded on gspc/control.py's use of QSettings("NOAA_GML", "GSPC") to
// persist the "taskFiles" array and "outputName" string; re-expressed here
// as a TOML document via github.com/BurntSushi/toml, the settings-file
// library already in the dependency tree.
package settings

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Settings is the on-disk configuration document.
type Settings struct {
	TaskFiles  []string `toml:"task_files"`
	OutputName string   `toml:"output_name"`
}

// Load reads a Settings document from path. A missing file is not an
// error: it returns the zero value, letting a first run start clean.
func Load(path string) (Settings, error) {
	var s Settings
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	_, err := toml.DecodeFile(path, &s)
	return s, err
}

// Save writes s to path, overwriting whatever was there.
func Save(path string, s Settings) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}

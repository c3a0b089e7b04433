package husky

/*------------------------------------------------------------------
 *
 * Purpose:   	Optional YAML defaults file.
 *
 * Description:	The six positional command-line arguments fully specify
 *		a transfer; the defaults file only carries the knobs a
 *		site sets once and forgets:
 *
 *			chunk_size: 64
 *			debug: true
 *			stats: true
 *			timestamp_format: "%H:%M:%S"
 *
 *		A missing file is not an error - everything has a
 *		built-in default.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults are the file-configurable settings.
type Defaults struct {
	ChunkSize       int    `yaml:"chunk_size"`
	Debug           bool   `yaml:"debug"`
	Stats           bool   `yaml:"stats"`
	TimestampFormat string `yaml:"timestamp_format"`
}

/*-------------------------------------------------------------------
 *
 * Name:        LoadDefaults
 *
 * Purpose:     Read the defaults file, if there is one.
 *
 * Inputs:	path	- File name.  Empty, or a nonexistent file,
 *			  yields the built-in defaults.
 *
 * Returns:	The defaults, with ChunkSize filled in.
 *
 *--------------------------------------------------------------------*/

func LoadDefaults(path string) (Defaults, error) {
	var d = Defaults{ChunkSize: DefaultChunkSize}

	if path == "" {
		return d, nil
	}

	var raw, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, fmt.Errorf("husky: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("husky: parsing %s: %w", path, err)
	}
	if d.ChunkSize <= 0 {
		d.ChunkSize = DefaultChunkSize
	}
	return d, nil
}

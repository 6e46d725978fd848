package devicelock

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
)

// State describes one lock file found on disk.
type State struct {
	// Device is the sanitized device id taken from the file name.
	Device string
	Path   string
	Held   bool
}

// Scan probes every device lock file in dir. A missing dir yields no states.
func Scan(dir string) ([]State, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lock dir: %w", err)
	}

	var states []State
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, "device-") || !strings.HasSuffix(name, ".lock") {
			continue
		}
		path := filepath.Join(dir, name)
		probe := flock.New(path)
		ok, err := probe.TryLock()
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", path, err)
		}
		if ok {
			_ = probe.Unlock()
		}
		states = append(states, State{
			Device: strings.TrimSuffix(strings.TrimPrefix(name, "device-"), ".lock"),
			Path:   path,
			Held:   !ok,
		})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Device < states[j].Device })
	return states, nil
}

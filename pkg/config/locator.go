package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-refmap/pkg/mapping"
)

// StoreLocator maps basenames onto the configured store layout, falling
// back to the archive URL for files absent locally.
type StoreLocator struct {
	cfg Config
}

// Locator returns the store locator for this configuration. It satisfies
// the catalog's Locator contract.
func (c Config) Locator() *StoreLocator {
	return &StoreLocator{cfg: c}
}

// LocateMapping resolves a mapping basename to a loadable source.
func (l *StoreLocator) LocateMapping(basename string) (mapping.Source, error) {
	return l.locate(basename, l.cfg.MappingPath(basename), "mappings")
}

// LocateReference resolves a reference basename to a loadable source.
func (l *StoreLocator) LocateReference(basename string) (mapping.Source, error) {
	return l.locate(basename, l.cfg.ReferencePath(basename), "references")
}

func (l *StoreLocator) locate(basename, local, area string) (mapping.Source, error) {
	if basename == "" || strings.ContainsAny(basename, "/\\") {
		return nil, fmt.Errorf("config: %q is not a bare basename", basename)
	}
	if _, err := os.Stat(local); err == nil {
		return mapping.SourceFromFile(local), nil
	}
	if l.cfg.Archive.URL != "" {
		url := strings.TrimSuffix(l.cfg.Archive.URL, "/") + "/" + area + "/" + basename
		return mapping.SourceFromURL(url), nil
	}
	return nil, fmt.Errorf("config: %q is not in the local store and no archive is configured", basename)
}

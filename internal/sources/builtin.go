package sources

import (
	"embed"
	"fmt"
)

//go:embed builtin/defaults.yaml
var builtinFS embed.FS

// LoadDefaults returns the bundled default pull list.
func LoadDefaults() ([]Request, error) {
	data, err := builtinFS.ReadFile("builtin/defaults.yaml")
	if err != nil {
		return nil, fmt.Errorf("read default templates: %w", err)
	}
	reqs, err := ParsePullList(data)
	if err != nil {
		return nil, fmt.Errorf("parse default templates: %w", err)
	}
	for i := range reqs {
		reqs[i].Kind = KindDefaults
	}
	return reqs, nil
}

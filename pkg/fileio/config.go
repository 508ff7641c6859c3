package fileio

import (
	"context"
	"github.com/pkg/errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	debugFile   = "IS_DEBUG.yaml"
	debugKey    = "IS_DEBUG"
	debugPrefix = "DEBUG_"
)

// LoadConfigs merges every *.yaml file in dir, later files (in natural
// order) overriding earlier ones. In debug mode a key "DEBUG_X" also sets
// "X". A nil debug reads the IS_DEBUG key of dir/IS_DEBUG.yaml, and the
// environment CI=True always turns debug mode on.
func LoadConfigs(dir string, debug *bool, opts ...Option) (map[string]interface{}, error) {
	s := newSettings(append([]Option{Strict()}, opts...), false)
	ctx := context.Background()

	isDebug := false
	switch {
	case os.Getenv("CI") == "True":
		isDebug = true
	case debug != nil:
		isDebug = *debug
	default:
		p := filepath.Join(dir, debugFile)
		if _, err := os.Stat(p); err == nil {
			v, err := load(ctx, p, s)
			if err != nil {
				return nil, err
			}
			if m, ok := v.(map[string]interface{}); ok {
				isDebug, _ = m[debugKey].(bool)
			}
		}
	}

	paths, err := Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	configs := map[string]interface{}{}
	for _, p := range paths {
		v, err := load(ctx, p, s)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("config <%s> is %T, not a mapping", p, v)
		}
		if isDebug {
			for k, val := range m {
				if name := strings.TrimPrefix(k, debugPrefix); name != k && name != "" {
					m[name] = val
					if s.show || s.verbose {
						s.logger.Info(k + " -> " + name)
					}
				}
			}
		}
		for k, val := range m {
			configs[k] = val
		}
	}
	return configs, nil
}

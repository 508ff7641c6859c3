package main

import (
	"fmt"
	"github.com/mocukie/mngs/pkg/payload"
	"sort"
	"strings"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// describe summarizes a loaded payload in a few lines.
func describe(v interface{}) string {
	var sb strings.Builder
	switch p := v.(type) {
	case nil:
		sb.WriteString("empty result")
	case *payload.Table:
		fmt.Fprintf(&sb, "Table: %d rows x %d columns", p.NumRows(), len(p.Columns))
		if p.HasIndex() {
			fmt.Fprintf(&sb, ", indexed by %q", p.IndexName)
		}
		fmt.Fprintf(&sb, "\n  columns: %s", strings.Join(p.Columns, ", "))
	case map[string]*payload.Table:
		fmt.Fprintf(&sb, "Tables: %d", len(p))
		for _, k := range sortedKeys(p) {
			fmt.Fprintf(&sb, "\n  %s: %d rows x %d columns", k, p[k].NumRows(), len(p[k].Columns))
		}
	case *payload.Array:
		sb.WriteString(p.String())
	case []*payload.Array:
		fmt.Fprintf(&sb, "Arrays: %d", len(p))
		for i, a := range p {
			fmt.Fprintf(&sb, "\n  [%d] %s", i, a)
		}
	case map[string]*payload.Array:
		fmt.Fprintf(&sb, "Arrays: %d", len(p))
		for _, k := range sortedKeys(p) {
			fmt.Fprintf(&sb, "\n  %s: %s", k, p[k])
		}
	case map[string]interface{}:
		fmt.Fprintf(&sb, "Mapping: %d keys\n  keys: %s", len(p), strings.Join(sortedKeys(p), ", "))
	case []interface{}:
		fmt.Fprintf(&sb, "List: %d items", len(p))
	case []string:
		fmt.Fprintf(&sb, "Lines: %d", len(p))
		if len(p) > 0 {
			fmt.Fprintf(&sb, "\n  first: %s", p[0])
		}
	case string:
		fmt.Fprintf(&sb, "Text: %d bytes", len(p))
	case *payload.Image:
		fmt.Fprintf(&sb, "Image: %s %dx%d", p.Format, p.Config.Width, p.Config.Height)
	case *payload.Raw:
		fmt.Fprintf(&sb, "Raw %s: %d channels, %d samples at %g Hz (%v)", p.Format, p.NumChannels(), p.NumSamples(), p.SFreq, p.Duration())
		if len(p.Markers) > 0 {
			fmt.Fprintf(&sb, "\n  markers: %d", len(p.Markers))
		}
	case *payload.Model:
		fmt.Fprintf(&sb, "Model: %s, %d bytes", p.Format, len(p.Bytes))
	default:
		fmt.Fprintf(&sb, "%T", v)
	}
	return sb.String()
}

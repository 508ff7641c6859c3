package pathx

import (
	"github.com/pkg/errors"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Normalize collapses every "/./" segment into "/".
func Normalize(p string) string {
	for strings.Contains(p, "/./") {
		p = strings.ReplaceAll(p, "/./", "/")
	}
	return p
}

// Ext returns the dispatch key of p: the text after the last "." of the
// final path element, prefixed with ".". A name without a dot has no key.
func Ext(p string) string {
	base := p
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		base = p[i+1:]
	}
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return ""
	}
	return base[i:]
}

// TrimExt returns p without its dispatch key.
func TrimExt(p string) string {
	return p[:len(p)-len(Ext(p))]
}

// HasSeparator reports whether p names a location rather than a bare file name.
func HasSeparator(p string) bool {
	return strings.ContainsAny(p, `/`+string(os.PathSeparator))
}

// EnsureDir creates every missing ancestor directory of the file p.
func EnsureDir(p string) error {
	dir := filepath.Dir(p)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrapf(err, "can not make directory <%s>", dir)
	}
	return nil
}

// Exists reports whether p names an existing regular file.
func Exists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// MoveToTemp moves p into the temp directory under a name made of its last
// depth path elements joined by "-", and returns the new location.
func MoveToTemp(p string, depth int) (string, error) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(p)), "/")
	if depth > 0 && depth < len(parts) {
		parts = parts[len(parts)-depth:]
	}
	var kept []string
	for _, s := range parts {
		if s != "" {
			kept = append(kept, s)
		}
	}
	dst := filepath.Join(os.TempDir(), strings.Join(kept, "-"))
	if err := os.Rename(p, dst); err != nil {
		return "", errors.WithStack(err)
	}
	return dst, nil
}

// ResolveDest turns a save destination into a file path. Destinations with a
// separator are used as given. Bare file names go under outDir when set,
// next to the running executable when scriptRelative is set, and into the
// working directory otherwise.
func ResolveDest(dest, outDir string, scriptRelative bool) string {
	dest = Normalize(dest)
	if HasSeparator(dest) {
		return dest
	}
	if outDir != "" {
		return filepath.Join(outDir, dest)
	}
	if scriptRelative {
		return filepath.Join(ScriptOutDir(), dest)
	}
	return dest
}

// ScriptOutDir is "<exe dir>/<exe name>_out". Binaries started by "go run"
// live in a throwaway build directory, so those fall back to a per-user
// directory under the temp dir.
func ScriptOutDir() string {
	exe, err := os.Executable()
	if err != nil || strings.Contains(exe, "go-build") {
		return filepath.Join(os.TempDir(), "fake-"+userName())
	}
	dir, name := filepath.Split(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(dir, name+"_out")
}

func userName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return filepath.Base(u.Username)
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

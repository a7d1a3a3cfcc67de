package vm

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ClassPath resolves a fully-qualified class name (with '/' separators) to
// its .class bytes. Spec.md §6 specifies the minimal case — a bare
// directory, read as "<QualifiedName>.class" — DirClassPath implements
// that; JarClassPath supplements it with the classpath-entry shape real
// JVMs also support, a .jar/.zip archive searched by the same path.
type ClassPath interface {
	ReadClass(name string) ([]byte, error)
}

// ErrClassNotFound is returned by a ClassPath when no entry matches name.
type ErrClassNotFound struct {
	Name  string
	Where string
}

func (e *ErrClassNotFound) Error() string {
	return fmt.Sprintf("class %s not found on %s", e.Name, e.Where)
}

// DirClassPath reads "<dir>/<name>.class" from a directory, mapping '/' in
// the class name to the platform path separator.
type DirClassPath struct {
	Dir string
}

func (d *DirClassPath) ReadClass(name string) ([]byte, error) {
	rel := filepath.FromSlash(name) + ".class"
	path := filepath.Join(d.Dir, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ErrClassNotFound{Name: name, Where: d.Dir}
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// JarClassPath reads "<name>.class" out of a .jar/.zip archive. Adapted
// from the teacher's jmod-reading classloader: this interpreter has no
// notion of JDK jmods (the native bridge intercepts java.* calls before any
// class load is attempted), but the same archive/zip machinery serves a
// genuine --cp entry that names a jar instead of a directory.
type JarClassPath struct {
	Path string

	data   []byte
	reader *zip.Reader
}

func (j *JarClassPath) ensureOpen() error {
	if j.reader != nil {
		return nil
	}
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return fmt.Errorf("opening classpath archive %s: %w", j.Path, err)
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("opening classpath archive %s as zip: %w", j.Path, err)
	}
	j.data = data
	j.reader = r
	return nil
}

func (j *JarClassPath) ReadClass(name string) ([]byte, error) {
	if err := j.ensureOpen(); err != nil {
		return nil, err
	}
	target := name + ".class"
	for _, f := range j.reader.File {
		if f.Name == target || strings.TrimPrefix(f.Name, "classes/") == target {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("opening %s in %s: %w", target, j.Path, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return nil, fmt.Errorf("reading %s in %s: %w", target, j.Path, err)
			}
			return data, nil
		}
	}
	return nil, &ErrClassNotFound{Name: name, Where: j.Path}
}

// ChainClassPath tries each entry in order, returning the first hit. This
// is the multi-entry "-cp a:b:c" shape: directories and jars mixed freely.
type ChainClassPath struct {
	Entries []ClassPath
}

func (c *ChainClassPath) ReadClass(name string) ([]byte, error) {
	var lastErr error
	for _, e := range c.Entries {
		data, err := e.ReadClass(name)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &ErrClassNotFound{Name: name, Where: "(empty classpath)"}
	}
	return nil, lastErr
}

// NewClassPath builds a ClassPath from a colon-separated list of directory
// and .jar/.zip paths, in the style of `java -cp`.
func NewClassPath(spec string) ClassPath {
	if spec == "" {
		spec = "."
	}
	var entries []ClassPath
	for _, p := range strings.Split(spec, string(os.PathListSeparator)) {
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, ".jar") || strings.HasSuffix(p, ".zip") {
			entries = append(entries, &JarClassPath{Path: p})
		} else {
			entries = append(entries, &DirClassPath{Dir: p})
		}
	}
	return &ChainClassPath{Entries: entries}
}

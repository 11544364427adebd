package resolver

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// FS is the filesystem the resolver probes.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
}

// OSFS probes the host filesystem.
type OSFS struct{}

func (OSFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (OSFS) ReadFile(name string) ([]byte, error)   { return os.ReadFile(name) }

// manifest is the subset of package.json the resolver reads.
type manifest struct {
	Main string `json:"main"`
}

// prober answers existence questions and reads package manifests. Manifests
// are memoised for the lifetime of one prober, i.e. one run.
type prober struct {
	fs         FS
	extensions []string
	manifests  *lru.Cache[string, *manifest]
}

func newProber(fsys FS, extensions []string, cacheSize int) (*prober, error) {
	cache, err := lru.New[string, *manifest](cacheSize)
	if err != nil {
		return nil, err
	}
	return &prober{fs: fsys, extensions: extensions, manifests: cache}, nil
}

func (p *prober) isFile(path string) bool {
	info, err := p.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (p *prober) isDir(path string) bool {
	info, err := p.fs.Stat(path)
	return err == nil && info.IsDir()
}

func (p *prober) recognized(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range p.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// probe finds the file a module path denotes: the path as a file, then as a
// directory.
func (p *prober) probe(path string) (string, bool) {
	if f, ok := p.probeFile(path); ok {
		return f, true
	}
	return p.probeDir(path)
}

// probeFile tries the literal path when it carries a recognized extension,
// then the path plus each extension in order.
func (p *prober) probeFile(path string) (string, bool) {
	if p.recognized(path) && p.isFile(path) {
		return path, true
	}
	for _, ext := range p.extensions {
		if cand := path + ext; p.isFile(cand) {
			return cand, true
		}
	}
	return "", false
}

// probeDir tries the directory index file, then the manifest entry point.
func (p *prober) probeDir(dir string) (string, bool) {
	if !p.isDir(dir) {
		return "", false
	}
	if f, ok := p.probeFile(filepath.Join(dir, "index")); ok {
		return f, true
	}

	m := p.manifest(dir)
	if m == nil || m.Main == "" {
		return "", false
	}
	main := filepath.Join(dir, filepath.FromSlash(m.Main))
	if f, ok := p.probeFile(main); ok {
		return f, true
	}
	// "main" may name a directory; only its index is consulted so a
	// manifest pointing at its own directory cannot recurse.
	if main != dir && p.isDir(main) {
		return p.probeFile(filepath.Join(main, "index"))
	}
	return "", false
}

// manifest returns the parsed dir/package.json, or nil when it is missing or
// unreadable.
func (p *prober) manifest(dir string) *manifest {
	if m, ok := p.manifests.Get(dir); ok {
		return m
	}

	var m *manifest
	if data, err := p.fs.ReadFile(filepath.Join(dir, "package.json")); err == nil {
		var parsed manifest
		if json.Unmarshal(data, &parsed) == nil {
			m = &parsed
		}
	}

	p.manifests.Add(dir, m)
	return m
}

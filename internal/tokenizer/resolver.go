package tokenizer

import (
	"os"
	"path/filepath"
)

// ArtifactFileName is the file whose presence marks a usable local
// tokenizer directory.
const ArtifactFileName = "tokenizer.json"

// Source identifies where tokenizer configuration is loaded from: a local
// directory when Local is set, otherwise a remote repository name.
type Source struct {
	Value string
	Local bool
}

// Resolver derives the authoritative source for each request. Resolution is
// pure over the filesystem and its fields; it never fails.
type Resolver struct {
	// LocalDir is preferred over any remote repository whenever it holds
	// a tokenizer.json artifact.
	LocalDir string
	// DefaultRepo is used when no local artifact exists and no override
	// is supplied.
	DefaultRepo string
	// ForceLocalOnly globally forbids network access during loading.
	ForceLocalOnly bool
}

// Resolve picks (source, localOnly) for an optional repo override.
//
// A local artifact pins the source to LocalDir and, whenever the directory
// exists, also pins loading to local-only: local-first is optimistic here,
// and the fallback path re-checks the same conditions before relaxing it.
// Without a local artifact the override (or DefaultRepo) is used and
// localOnly carries the global setting verbatim.
func (r Resolver) Resolve(override string) (Source, bool) {
	if fileExists(filepath.Join(r.LocalDir, ArtifactFileName)) {
		localOnly := r.ForceLocalOnly || dirExists(r.LocalDir)
		return Source{Value: r.LocalDir, Local: true}, localOnly
	}

	repo := override
	if repo == "" {
		repo = r.DefaultRepo
	}
	return Source{Value: repo}, r.ForceLocalOnly
}

// LocalArtifactPath returns the path of the local artifact file, whether or
// not it exists. Used for the diagnostic file fingerprint in /info.
func (r Resolver) LocalArtifactPath() string {
	return filepath.Join(r.LocalDir, ArtifactFileName)
}

// HasLocalDir reports whether the configured local directory exists.
func (r Resolver) HasLocalDir() bool {
	return dirExists(r.LocalDir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

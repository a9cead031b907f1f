// Package emulator implements the orchestrator and foreign-function
// boundary: the process-wide session a host mod-loader calls into to
// contribute mod directories and ask for a serialized TOC, container
// header, and partition-block list.
//
// Grounded on spec.md §4.7 and original_source/asset_collector.rs's
// process-wide AssetCollector statics (a single mutex-guarded session
// replaces three separate global statics). NewSession creates the tree,
// profiler and metadata map up front rather than on first write; the tree is
// never torn down.
package emulator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/reloaded-project/utoc-emulator/internal/assettree"
	"github.com/reloaded-project/utoc-emulator/internal/metasidecar"
	"github.com/reloaded-project/utoc-emulator/internal/toc"
)

// Options configures a Session, grounded on the teacher's Config pattern:
// sensible defaults, every field overridable.
type Options struct {
	// TOCFileName is the base name (no directory) Build matches against;
	// a request for any other final path component returns ErrNotMyFile.
	TOCFileName string
	Version                   toc.Version
	CompressionBlockAlignment uint32
}

// DefaultOptions returns the 4.27 defaults this system targets.
func DefaultOptions() Options {
	return Options{
		TOCFileName:               "global.utoc",
		Version:                   toc.Version3,
		CompressionBlockAlignment: toc.DefaultCompressionBlockAlignment,
	}
}

// ErrNotMyFile is returned by Build when basePath's final component doesn't
// match the session's configured TOC name, or when no mods have been
// ingested yet. The host is expected to fall back to serving the real file
// from disk in the first case.
var ErrNotMyFile = fmt.Errorf("emulator: not my file")

// ContainerData is the cached result of the most recent successful Build.
type ContainerData struct {
	TOC             []byte
	ContainerHeader []byte
	Partitions      []toc.PartitionBlock
	ContainerID     uint64
}

// Session is the process-wide state a host holds for the lifetime of the
// game process: the merged asset tree, the metadata sidecar map, the ingest
// profiler, and the most recently built container data. All fields are
// guarded by mu; the intended usage is sequential (ingest, then build) but
// concurrent ingest calls are safe.
type Session struct {
	mu sync.Mutex

	opts Options

	root     *assettree.Directory
	profiler *assettree.Profiler
	meta     *metasidecar.Map

	data *ContainerData
}

// NewSession returns a session ready to receive Ingest calls.
func NewSession(opts Options) *Session {
	return &Session{
		opts:     opts,
		root:     assettree.NewRoot(),
		profiler: assettree.NewProfiler(),
		meta:     &metasidecar.Map{},
	}
}

// Ingest recursively walks modPath, merging its files and directories into
// the session's asset tree with last-writer-wins override semantics, and
// folding any .utocmeta sidecar it finds into the session's metadata map.
// A missing modPath is a no-op per spec.md §7 ("path missing": skipped, no
// profiler slot created).
func (s *Session) Ingest(modID, modPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(modPath); err != nil {
		return nil
	}

	mp := s.profiler.BeginMod(modID, modPath)
	var metaPaths []string
	err := assettree.Ingest(s.root, modPath, mp, func(osPath string) {
		metaPaths = append(metaPaths, osPath)
	})
	mp.Finish()
	if err != nil {
		return fmt.Errorf("emulator: ingesting %s: %w", modID, err)
	}

	for _, p := range metaPaths {
		f, err := os.Open(p)
		if err != nil {
			mp.AddFailedEntry(filepath.Dir(p), err.Error())
			continue
		}
		sidecar, err := metasidecar.Parse(f)
		f.Close()
		if err != nil {
			mp.AddFailedEntry(filepath.Dir(p), err.Error())
			continue
		}
		s.meta.Merge(sidecar)
	}

	s.data = nil // a new or changed mod invalidates any cached build
	return nil
}

// Build serializes the session's current tree into a TOC, container header,
// and partition-block list, but only when basePath's final path component
// matches the session's configured TOC name. Per spec.md §7, an unmatched
// name or an empty tree both return ErrNotMyFile; the host is expected to
// fall back to disk in the former case.
func (s *Session) Build(basePath string) (ContainerData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.EqualFold(filepath.Base(basePath), s.opts.TOCFileName) {
		return ContainerData{}, ErrNotMyFile
	}
	if len(s.root.Children) == 0 {
		return ContainerData{}, fmt.Errorf("%w: no mods loaded", ErrNotMyFile)
	}

	result, err := toc.Build(s.root, toc.Options{
		Version:                   s.opts.Version,
		CompressionBlockAlignment: s.opts.CompressionBlockAlignment,
	}, s.meta)
	if err != nil {
		return ContainerData{}, fmt.Errorf("emulator: build failed: %w", err)
	}

	data := ContainerData{
		TOC:             result.TOC,
		ContainerHeader: result.ContainerHeader,
		Partitions:      result.Partitions,
		ContainerID:     result.ContainerID,
	}
	s.data = &data
	return data, nil
}

// ReleaseContainerData drops the cached build result. The buffers already
// handed to a host caller are unaffected: ownership of those transferred at
// the Build call and this system never reclaims them.
func (s *Session) ReleaseContainerData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
}

// PrintAssetCollectorResults writes the ingest profiler's human-readable
// report to stdout.
func (s *Session) PrintAssetCollectorResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiler.Print()
}

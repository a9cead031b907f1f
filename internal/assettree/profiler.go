package assettree

import (
	"fmt"
	"strings"
	"time"
)

// Profiler accumulates per-mod ingest statistics across the lifetime of a
// session, grounded on original_source/asset_collector.rs's
// AssetCollectorProfiler/AssetCollectorProfilerMod.
type Profiler struct {
	Mods []*ModProfiler
}

// NewProfiler returns an empty profiler.
func NewProfiler() *Profiler {
	return &Profiler{}
}

// BeginMod starts a new per-mod profiling slot and returns it. The caller
// must finish it with (*ModProfiler).Finish once ingestion of that mod
// completes.
func (p *Profiler) BeginMod(modID, osPath string) *ModProfiler {
	m := &ModProfiler{ID: modID, OSPath: osPath, start: time.Now()}
	p.Mods = append(p.Mods, m)
	return m
}

const reportWidth = 80

// Print writes the human-readable report to stdout, in the voice of the
// teacher's own PrintNamesDirectory and the original program's
// TocBuilderProfiler::display_results/print.
func (p *Profiler) Print() {
	fmt.Println(strings.Repeat("#", reportWidth))
	printCentered(fmt.Sprintf("ASSET COLLECTOR: Collected files from %d mods", len(p.Mods)))
	fmt.Println(strings.Repeat("=", reportWidth))
	for _, m := range p.Mods {
		m.print()
		fmt.Println(strings.Repeat("=", reportWidth))
	}
}

func printCentered(text string) {
	left := (reportWidth - len(text)) / 2
	if left < 0 {
		left = 0
	}
	fmt.Println(strings.Repeat(" ", left) + text)
}

// SkippedFile records one file that was excluded from the tree at ingest
// time, and why.
type SkippedFile struct {
	OSPath string
	Reason string
}

// FailedEntry records one directory entry the OS refused to read.
type FailedEntry struct {
	ParentDir string
	Reason    string
}

// ModProfiler accumulates ingest statistics for a single mod.
type ModProfiler struct {
	ID     string
	OSPath string

	DirectoriesAdded   uint64
	AddedFiles         uint64
	AddedFilesSize     uint64
	ReplacedFiles      uint64
	ReplacedFilesSize  uint64
	SkippedFiles       []SkippedFile
	SkippedFilesSize   uint64
	FailedEntries      []FailedEntry
	TimeToTreeMicros   int64

	start time.Time
}

// AddDirectory records one freshly created directory.
func (m *ModProfiler) AddDirectory() { m.DirectoriesAdded++ }

// AddAddedFile records a freshly added file of the given size.
func (m *ModProfiler) AddAddedFile(size uint64) {
	m.AddedFiles++
	m.AddedFilesSize += size
}

// AddReplacedFile records a file that replaced an earlier mod's copy.
func (m *ModProfiler) AddReplacedFile(size uint64) {
	m.ReplacedFiles++
	m.ReplacedFilesSize += size
}

// AddSkippedFile records a file that never entered the tree.
func (m *ModProfiler) AddSkippedFile(osPath, reason string, size uint64) {
	m.SkippedFiles = append(m.SkippedFiles, SkippedFile{OSPath: osPath, Reason: reason})
	m.SkippedFilesSize += size
}

// AddFailedEntry records a directory entry the OS refused to read.
func (m *ModProfiler) AddFailedEntry(parentDir, reason string) {
	m.FailedEntries = append(m.FailedEntries, FailedEntry{ParentDir: parentDir, Reason: reason})
}

// Finish stamps the elapsed ingest time.
func (m *ModProfiler) Finish() {
	m.TimeToTreeMicros = time.Since(m.start).Microseconds()
}

func (m *ModProfiler) print() {
	fmt.Println(m.ID)
	fmt.Printf("Created tree in %.3f ms\n", float64(m.TimeToTreeMicros)/1000)
	fmt.Printf("%d directories added\n", m.DirectoriesAdded)
	fmt.Printf("%d added files (%d KB)\n", m.AddedFiles, m.AddedFilesSize/1024)
	fmt.Printf("%d replaced files (%d KB)\n", m.ReplacedFiles, m.ReplacedFilesSize/1024)
	if len(m.SkippedFiles) > 0 {
		fmt.Println(strings.Repeat("-", reportWidth))
		fmt.Printf("SKIPPED FILES: %d FILES (%d KB)\n", len(m.SkippedFiles), m.SkippedFilesSize/1024)
		for _, s := range m.SkippedFiles {
			fmt.Printf("File %q, reason %q\n", s.OSPath, s.Reason)
		}
	}
	if len(m.FailedEntries) > 0 {
		fmt.Println(strings.Repeat("-", reportWidth))
		fmt.Printf("FAILED TO LOAD: %d FILES\n", len(m.FailedEntries))
		for _, f := range m.FailedEntries {
			fmt.Printf("Inside folder %q, reason %q\n", f.ParentDir, f.Reason)
		}
	}
}

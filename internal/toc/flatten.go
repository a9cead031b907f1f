package toc

import (
	"fmt"
	"path"
	"strings"

	"github.com/reloaded-project/utoc-emulator/internal/assettree"
)

// fileRecord carries the information the per-file serialization pass (see
// resolve.go) needs but that doesn't belong in the wire-format
// FileIndexEntry: the on-disk path, the byte size, and the raw (pre-/Content
// excision, no leading slash) hash path.
type fileRecord struct {
	osPath  string
	size    uint64
	rawPath string
}

// tracker holds the directory and file counters of the original flatten
// pass (its third counter, resolved strings, is the StringPool's length):
// they determine the index a not-yet-visited successor record will occupy,
// which is what lets next_sibling/first_child/first_file/next_file be filled
// in during a single top-down pass.
type tracker struct {
	resolvedDirectories uint32
	resolvedFiles        uint32
}

// flattenTree performs a preorder traversal of root, producing the
// directory-index and file-index arrays plus one ancillary fileRecord per
// file index entry, and populating pool with every leaf name encountered.
func flattenTree(root *assettree.Directory, pool *StringPool) ([]DirectoryIndexEntry, []FileIndexEntry, []fileRecord) {
	var dirs []DirectoryIndexEntry
	var files []FileIndexEntry
	var records []fileRecord
	t := &tracker{}
	flattenDir(root, t, pool, &dirs, &files, &records)
	return dirs, files, records
}

func flattenDir(d *assettree.Directory, t *tracker, pool *StringPool, dirs *[]DirectoryIndexEntry, files *[]FileIndexEntry, records *[]fileRecord) uint32 {
	entry := DirectoryIndexEntry{Name: NoIndex, FirstChild: NoIndex, NextSibling: NoIndex, FirstFile: NoIndex}
	if d.Name != "" {
		entry.Name = pool.IndexFor(d.Name)
	}

	if len(d.Files) > 0 {
		entry.FirstFile = t.resolvedFiles
		for i, f := range d.Files {
			fe := FileIndexEntry{
				Name:     pool.IndexFor(f.Name),
				NextFile: NoIndex,
				UserData: t.resolvedFiles,
			}
			t.resolvedFiles++
			if i < len(d.Files)-1 {
				fe.NextFile = t.resolvedFiles
			}
			*files = append(*files, fe)
			*records = append(*records, fileRecord{
				osPath:  f.OSPath,
				size:    f.Size,
				rawPath: rawHashPath(d, f.Name),
			})
		}
	}

	t.resolvedDirectories++
	selfIndex := uint32(len(*dirs))
	*dirs = append(*dirs, entry)

	if len(d.Children) > 0 {
		(*dirs)[selfIndex].FirstChild = t.resolvedDirectories
		var prevChildIndex uint32
		for i, child := range d.Children {
			childIndex := flattenDir(child, t, pool, dirs, files, records)
			if i > 0 {
				(*dirs)[prevChildIndex].NextSibling = childIndex
			}
			prevChildIndex = childIndex
		}
	}

	return selfIndex
}

// rawHashPath joins dir's root-relative path with the leaf file name (minus
// extension), slash-separated and without a leading slash: e.g.
// "Game/Content/a" for a file "a.uasset" inside Game/Content.
func rawHashPath(dir *assettree.Directory, fileName string) string {
	var comps []string
	for n := dir; n != nil && n.Name != ""; n = n.Parent {
		comps = append([]string{n.Name}, comps...)
	}
	stem := strings.TrimSuffix(fileName, path.Ext(fileName))
	comps = append(comps, stem)
	return strings.Join(comps, "/")
}

// hashPath excises the first "/Content" segment from a raw path and adds
// the leading slash the wire format requires: "Game/Content/a" becomes
// "/Game/a". A raw path without a "/Content" segment indicates a mod tree
// that never descended into a Content folder, which this system cannot
// produce a valid chunk ID for.
func hashPath(raw string) (string, error) {
	before, after, found := strings.Cut(raw, "/Content")
	if !found {
		return "", fmt.Errorf("toc: path %q has no /Content segment to excise", raw)
	}
	return "/" + before + after, nil
}

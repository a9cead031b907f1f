package assettree

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/reloaded-project/utoc-emulator/internal/iopackage"
)

// MetaFileName is the sidecar file ingestion pulls out of the tree instead
// of treating as an asset.
const MetaFileName = ".utocmeta"

var suitableExtensions = map[string]bool{
	"uasset": true,
	"umap":   true,
	"ubulk":  true,
	"uptnl":  true,
}

// Ingest recursively walks modPath and adds its files and directories under
// root, recording statistics and failures on mp. onMetaFile, if non-nil, is
// called with the absolute path of every .utocmeta file found; the file
// itself never enters the tree.
//
// The first level of directories directly under modPath is subject to the
// Engine/Game rename rule: a directory literally named "Engine" keeps its
// name, every other first-level directory is folded into a directory named
// "Game". The rule is applied before the existing-directory lookup, so a
// mod's "MyMod" and another mod's "Content" both land inside the same
// "Game" node.
func Ingest(root *Directory, modPath string, mp *ModProfiler, onMetaFile func(osPath string)) error {
	return ingestDir(root, modPath, true, mp, onMetaFile)
}

func ingestDir(parent *Directory, osPath string, topLevel bool, mp *ModProfiler, onMetaFile func(string)) error {
	entries, err := os.ReadDir(osPath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(osPath, name)

		if entry.IsDir() {
			effectiveName := name
			if topLevel && name != "Engine" {
				effectiveName = "Game"
			}
			child := parent.GetChildDir(effectiveName)
			if child == nil {
				child = &Directory{Name: effectiveName}
				parent.AddDirectory(child)
				mp.AddDirectory()
			}
			if err := ingestDir(child, full, false, mp, onMetaFile); err != nil {
				mp.AddFailedEntry(full, err.Error())
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			mp.AddFailedEntry(osPath, err.Error())
			continue
		}
		size := uint64(info.Size())

		if name == MetaFileName {
			if onMetaFile != nil {
				onMetaFile(full)
			}
			continue
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		switch {
		case ext == "":
			mp.AddSkippedFile(full, "No file extension", size)
			continue
		case !suitableExtensions[ext]:
			mp.AddSkippedFile(full, "Unsupported file type", size)
			continue
		}

		if ext == "uasset" || ext == "umap" {
			ok, err := iopackage.IsAcceptableAsset(full)
			if err != nil {
				mp.AddFailedEntry(full, err.Error())
				continue
			}
			if !ok {
				mp.AddSkippedFile(full, "Uses cooked package", size)
				continue
			}
		}

		file := &File{Name: name, Size: size, OSPath: full}
		if parent.AddOrReplaceFile(file) {
			mp.AddReplacedFile(size)
		} else {
			mp.AddAddedFile(size)
		}
	}
	return nil
}

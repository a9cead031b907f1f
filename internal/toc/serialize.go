package toc

import (
	"encoding/binary"
	"io"

	"github.com/reloaded-project/utoc-emulator/internal/ioname"
)

// mountPoint is the TOC's fixed mount-point string; UE never mounts
// anywhere else for a loose container.
const mountPoint = "../../../"

func writeMountPoint(w io.Writer) error {
	return ioname.WriteTOCString(w, mountPoint)
}

func writeDirectoryIndex(w io.Writer, dirs []DirectoryIndexEntry) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(dirs))); err != nil {
		return err
	}
	for _, d := range dirs {
		if err := d.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func writeFileIndex(w io.Writer, files []FileIndexEntry) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(files))); err != nil {
		return err
	}
	for _, f := range files {
		if err := f.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func writeStringPool(w io.Writer, pool *StringPool) error {
	names := pool.Names()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(names))); err != nil {
		return err
	}
	for _, n := range names {
		if err := ioname.WriteTOCString(w, n); err != nil {
			return err
		}
	}
	return nil
}

// Package assettree implements the mutable n-ary tree of directories and
// files that mod ingestion builds and the TOC resolver later flattens.
//
// Ownership runs parent -> child along the Children and Files slices; a
// node's Parent field is a non-owning back-reference used only to
// reconstruct root-relative paths. Go's garbage collector makes the cycle
// harmless, but the discipline (never write through Parent, never let it
// participate in child enumeration) is kept because it is what keeps the
// flatten pass in internal/toc correct.
package assettree

// Directory is either the tree root (Name == "" and Parent == nil) or a
// named directory contributed by a mod.
type Directory struct {
	Name     string
	Parent   *Directory
	Children []*Directory
	Files    []*File
}

// File is a leaf asset: a byte length and the on-disk path that will be
// mapped into the virtual CAS.
type File struct {
	Name   string
	Size   uint64
	OSPath string
	Parent *Directory
}

// NewRoot creates an empty, unnamed tree root.
func NewRoot() *Directory {
	return &Directory{}
}

// GetChildDir performs a linear scan of d's child-directory list and returns
// the one named name, or nil.
func (d *Directory) GetChildDir(name string) *Directory {
	for _, c := range d.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddDirectory appends child to d's ordered child-directory list and sets
// its parent back-reference. It never replaces an existing directory with
// the same name; callers must consult GetChildDir first and descend into
// the existing node instead of calling AddDirectory again.
func (d *Directory) AddDirectory(child *Directory) {
	child.Parent = d
	d.Children = append(d.Children, child)
}

// GetChildFile performs a linear scan of d's child-file list and returns the
// one named name, or nil.
func (d *Directory) GetChildFile(name string) *File {
	for _, f := range d.Files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// AddOrReplaceFile adds file as a new child of d, or, if a file with the
// same leaf name already exists, replaces that record in place (preserving
// sibling order) and discards the old one entirely. It reports whether the
// file was a fresh addition or a replacement, for the ingest profiler.
func (d *Directory) AddOrReplaceFile(file *File) (replaced bool) {
	file.Parent = d
	for i, existing := range d.Files {
		if existing.Name == file.Name {
			d.Files[i] = file
			return true
		}
	}
	d.Files = append(d.Files, file)
	return false
}

// Path returns the slash-joined, root-relative path of d, excluding the
// unnamed root itself. The root has path "".
func (d *Directory) Path() string {
	var comps []string
	for n := d; n != nil && n.Name != ""; n = n.Parent {
		comps = append([]string{n.Name}, comps...)
	}
	joined := ""
	for i, c := range comps {
		if i > 0 {
			joined += "/"
		}
		joined += c
	}
	return joined
}

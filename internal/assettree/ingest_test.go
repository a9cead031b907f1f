package assettree

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestIngestRenamesFirstLevelDirectoryToGame(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "MyMod", "a.ubulk"), []byte("x"))

	tree := NewRoot()
	mp := &ModProfiler{ID: "test"}
	if err := Ingest(tree, root, mp, nil); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	game := tree.GetChildDir("Game")
	if game == nil {
		t.Fatal("expected a \"Game\" directory, MyMod was not renamed")
	}
	if tree.GetChildDir("MyMod") != nil {
		t.Error("original directory name \"MyMod\" should not also exist")
	}
	if f := game.GetChildFile("a.ubulk"); f == nil {
		t.Error("expected a.ubulk under the renamed Game directory")
	}
}

func TestIngestKeepsEngineDirectoryName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Engine", "b.ubulk"), []byte("x"))

	tree := NewRoot()
	mp := &ModProfiler{ID: "test"}
	if err := Ingest(tree, root, mp, nil); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if tree.GetChildDir("Engine") == nil {
		t.Fatal("expected an \"Engine\" directory to survive unrenamed")
	}
}

func TestIngestSecondModMergesIntoExistingGameDirectory(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeFile(t, filepath.Join(rootA, "ModA", "a.ubulk"), []byte("x"))
	writeFile(t, filepath.Join(rootB, "ModB", "b.ubulk"), []byte("y"))

	tree := NewRoot()
	mpA := &ModProfiler{ID: "modA"}
	mpB := &ModProfiler{ID: "modB"}
	if err := Ingest(tree, rootA, mpA, nil); err != nil {
		t.Fatalf("Ingest modA failed: %v", err)
	}
	if err := Ingest(tree, rootB, mpB, nil); err != nil {
		t.Fatalf("Ingest modB failed: %v", err)
	}

	if len(tree.Children) != 1 {
		t.Fatalf("expected exactly one top-level directory, got %d", len(tree.Children))
	}
	game := tree.GetChildDir("Game")
	if game == nil {
		t.Fatal("expected the shared \"Game\" directory")
	}
	if game.GetChildFile("a.ubulk") == nil || game.GetChildFile("b.ubulk") == nil {
		t.Error("expected both mods' files under the shared Game directory")
	}
}

func TestIngestLaterModReplacesFile(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeFile(t, filepath.Join(rootA, "Mod", "a.ubulk"), []byte("old"))
	writeFile(t, filepath.Join(rootB, "Mod", "a.ubulk"), []byte("newer"))

	tree := NewRoot()
	mpA := &ModProfiler{ID: "modA"}
	mpB := &ModProfiler{ID: "modB"}
	if err := Ingest(tree, rootA, mpA, nil); err != nil {
		t.Fatalf("Ingest modA failed: %v", err)
	}
	if err := Ingest(tree, rootB, mpB, nil); err != nil {
		t.Fatalf("Ingest modB failed: %v", err)
	}

	game := tree.GetChildDir("Game")
	f := game.GetChildFile("a.ubulk")
	if f == nil {
		t.Fatal("expected a.ubulk to exist")
	}
	if f.Size != 5 {
		t.Errorf("expected the later mod's file (size 5) to win, got size %d", f.Size)
	}
	if mpB.ReplacedFiles != 1 {
		t.Errorf("expected modB's profiler to record 1 replaced file, got %d", mpB.ReplacedFiles)
	}
}

func TestIngestSkipsUnsupportedExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Mod", "readme.txt"), []byte("hello"))

	tree := NewRoot()
	mp := &ModProfiler{ID: "test"}
	if err := Ingest(tree, root, mp, nil); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(mp.SkippedFiles) != 1 {
		t.Fatalf("expected 1 skipped file, got %d", len(mp.SkippedFiles))
	}
	if mp.SkippedFiles[0].Reason != "Unsupported file type" {
		t.Errorf("unexpected skip reason: %q", mp.SkippedFiles[0].Reason)
	}
}

func TestIngestRoutesMetaFileToCallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Mod", ".utocmeta"), []byte("meta"))

	var seen string
	tree := NewRoot()
	mp := &ModProfiler{ID: "test"}
	if err := Ingest(tree, root, mp, func(path string) { seen = path }); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if seen == "" {
		t.Fatal("expected onMetaFile callback to fire")
	}
	if game := tree.GetChildDir("Game"); game != nil && len(game.Files) != 0 {
		t.Error(".utocmeta must not be added to the tree as a file")
	}
}

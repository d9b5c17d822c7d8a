package testing

import (
	"os"
	"path/filepath"
	"testing"
)

const DefaultTestDirRoot = "skytile-test"

func DefaultTestDir() string {
	return filepath.Join(os.TempDir(), DefaultTestDirRoot)
}

// TempDir returns a fresh directory under DefaultTestDir, removed when the test ends.
func TempDir(t testing.TB) string {
	t.Helper()
	if err := os.MkdirAll(DefaultTestDir(), 0770); err != nil {
		t.Fatal(err)
	}
	dir, err := os.MkdirTemp(DefaultTestDir(), filepath.Base(t.Name())+"-")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

package testdata

import (
	"path/filepath"
	"runtime"
)

// basepath is the root directory of this package.
var basepath string

func init() {
	_, currentFile, _, _ := runtime.Caller(0)
	basepath = filepath.Dir(currentFile)
}

// Path returns the absolute path the given relative file or directory path,
// relative to this testdata/ directory.
// If rel is already absolute, it is returned unmodified.
// Taken from https://github.com/grpc/grpc-go/blob/master/testdata/testdata.go.
func Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(basepath, rel)
}

// SkyRoot is a three tile tree covering ra 350..10, dec -10..10.
// The root (1 deg/px, red) has one referenced subtile sky/east.json (green)
// and one inline subtile (blue), both 0.1 deg/px.
// Images are 8x8 solid PNGs.
var SkyRoot = "./sky/root.json"
var SkyEast = "./sky/east.json"
var SkyRootImage = "./sky/root.png"

package params

import (
	"path/filepath"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/mitchellh/go-homedir"
)

func init() {
	metrics.Enabled = true
}

const (
	StoreDBName    = "descriptions.db"
	ConfigFileName = "config"
)

// DatadirRoot is where the description store and config file live.
var DatadirRoot = func() string {
	home, err := homedir.Dir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".skytile")
}()

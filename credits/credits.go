/*
Package credits holds the attribution records carried by sky image tiles,
and an aggregator that folds the credits of many tiles into the short list
shown in a loading bar or attribution panel.

A tile carries two records: one for the server hosting the data,
and one for the creator of the image collection.
*/
package credits

import (
	"fmt"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
)

// Credits is one attribution record.
type Credits struct {
	// Short is a very short credit to display in the loading bar.
	Short string `json:"shortCredits,omitempty"`

	// Full is the full credit text.
	Full string `json:"fullCredits,omitempty"`

	// InfoURL is where to get more info about the server or data collection.
	InfoURL string `json:"infoURL,omitempty"`
}

// IsZero returns true if no field is set.
func (c Credits) IsZero() bool {
	return c.Short == "" && c.Full == "" && c.InfoURL == ""
}

// Label returns the most compact non-empty text for the record.
func (c Credits) Label() string {
	switch {
	case c.Short != "":
		return c.Short
	case c.Full != "":
		return c.Full
	}
	return c.InfoURL
}

// key identifies a record for deduplication.
// Records pointing at the same info URL are the same attribution,
// whatever their texts say.
func (c Credits) key() string {
	if c.InfoURL != "" {
		return "url:" + c.InfoURL
	}
	hash, err := hashstructure.Hash(c, hashstructure.FormatV2, nil)
	if err != nil {
		// Unreachable for a struct of strings.
		return "raw:" + c.Short + "\x00" + c.Full
	}
	return fmt.Sprintf("hash:%d", hash)
}

// Provider is anything which can report its own server and data set credits.
type Provider interface {
	Credits() (server, dataSet Credits)
}

// Snapshot is an immutable, UI-facing view of aggregated credits.
type Snapshot struct {
	Servers  []Credits `json:"servers"`
	DataSets []Credits `json:"dataSets"`
}

// Short joins the short labels of every record, data sets first,
// for a one-line loading bar.
func (s Snapshot) Short() string {
	labels := make([]string, 0, len(s.DataSets)+len(s.Servers))
	for _, c := range s.DataSets {
		labels = append(labels, c.Label())
	}
	for _, c := range s.Servers {
		labels = append(labels, c.Label())
	}
	return strings.Join(labels, " - ")
}

// Equal returns true if both snapshots list the same records in the same order.
func (s Snapshot) Equal(o Snapshot) bool {
	return equalSlices(s.Servers, o.Servers) && equalSlices(s.DataSets, o.DataSets)
}

func equalSlices(a, b []Credits) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

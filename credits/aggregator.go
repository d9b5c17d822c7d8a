package credits

// Aggregator accumulates distinct server and data set credits in the order
// they are first seen. The zero value is ready to use.
// It is not safe for concurrent use.
type Aggregator struct {
	servers  []Credits
	dataSets []Credits
	seen     map[string]struct{}
}

// Add records a tile's server and data set credits.
// Empty records and records already seen are ignored.
func (a *Aggregator) Add(server, dataSet Credits) {
	a.servers = a.add(a.servers, "server/", server)
	a.dataSets = a.add(a.dataSets, "dataset/", dataSet)
}

// AddProvider is shorthand for Add(p.Credits()).
func (a *Aggregator) AddProvider(p Provider) {
	a.Add(p.Credits())
}

func (a *Aggregator) add(list []Credits, kind string, c Credits) []Credits {
	if c.IsZero() {
		return list
	}
	if a.seen == nil {
		a.seen = make(map[string]struct{})
	}
	k := kind + c.key()
	if _, ok := a.seen[k]; ok {
		return list
	}
	a.seen[k] = struct{}{}
	return append(list, c)
}

// Servers returns the distinct server credits, in accumulation order.
func (a *Aggregator) Servers() []Credits {
	return append([]Credits(nil), a.servers...)
}

// DataSets returns the distinct data set credits, in accumulation order.
func (a *Aggregator) DataSets() []Credits {
	return append([]Credits(nil), a.dataSets...)
}

// Snapshot copies the current state.
func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{Servers: a.Servers(), DataSets: a.DataSets()}
}

// Reset forgets everything.
func (a *Aggregator) Reset() {
	a.servers = a.servers[:0]
	a.dataSets = a.dataSets[:0]
	a.seen = nil
}

// Aggregate folds the providers, in order, into a Snapshot.
func Aggregate[P Provider](providers []P) Snapshot {
	var a Aggregator
	for _, p := range providers {
		a.AddProvider(p)
	}
	return a.Snapshot()
}

// Merge adds every record of s, servers and data sets alike.
func (a *Aggregator) Merge(s Snapshot) {
	for _, c := range s.Servers {
		a.Add(c, Credits{})
	}
	for _, c := range s.DataSets {
		a.Add(Credits{}, c)
	}
}

package loader

import (
	"github.com/rotblauer/skytile/texture"
)

// Status is the load state of a tile description or texture.
type Status int

const (
	NotLoaded Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case NotLoaded:
		return "not-loaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Token identifies the requester of a load.
// Completions carry it back so that results for requesters
// that have gone away can be dropped.
type Token uint64

type Kind int

const (
	KindDescription Kind = iota
	KindTexture
)

func (k Kind) String() string {
	if k == KindTexture {
		return "texture"
	}
	return "description"
}

// Completion is the result of one request, delivered on the render thread by Drain.
type Completion struct {
	Token Token
	// Gen echoes the generation passed to RequestTexture.
	Gen  uint64
	Kind Kind
	URI  string

	Description map[string]any
	Texture     *texture.Texture

	Err error
}

func (c Completion) OK() bool {
	return c.Err == nil
}

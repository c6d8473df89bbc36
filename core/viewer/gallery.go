// Package viewer pages through the attachments of a work item.
package viewer

import (
	"errors"
	"fmt"

	"github.com/trezcool/classboard/core/work"
)

type Kind string

const (
	KindImage       Kind = "image"       // rendered inline
	KindDocument    Kind = "document"    // opened in a new context
	KindUnsupported Kind = "unsupported" // placeholder
)

// Keys understood by HandleKey.
const (
	KeyEscape = "Escape"
	KeyLeft   = "ArrowLeft"
	KeyRight  = "ArrowRight"
)

var ErrNoFiles = errors.New("no attachments to show")

// KindOf tells how an attachment is presented.
func KindOf(f work.File) Kind {
	switch {
	case f.IsImage():
		return KindImage
	case f.IsPDF():
		return KindDocument
	default:
		return KindUnsupported
	}
}

// Frame is what the viewer shows for the current attachment.
type Frame struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Label string `json:"label"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Kind  Kind   `json:"kind"`
	Prev  int    `json:"prev"`
	Next  int    `json:"next"`
}

// Gallery is a modal sequence viewer. Its only state is the current index.
type Gallery struct {
	files  []work.File
	index  int
	closed bool
}

// New opens a gallery on files at initial, which is clamped into range.
func New(files []work.File, initial int) (*Gallery, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	g := &Gallery{files: files}
	g.Select(initial)
	return g, nil
}

func (g *Gallery) wrap(i int) int {
	n := len(g.files)
	return ((i % n) + n) % n
}

func (g *Gallery) Index() int   { return g.index }
func (g *Gallery) Closed() bool { return g.closed }

func (g *Gallery) Next() { g.index = g.wrap(g.index + 1) }
func (g *Gallery) Prev() { g.index = g.wrap(g.index - 1) }

// Select jumps to attachment i, clamped to the valid range.
func (g *Gallery) Select(i int) {
	switch {
	case i < 0:
		i = 0
	case i >= len(g.files):
		i = len(g.files) - 1
	}
	g.index = i
}

func (g *Gallery) Close() { g.closed = true }

// HandleKey applies a keyboard shortcut and reports whether the key was understood.
func (g *Gallery) HandleKey(key string) bool {
	switch key {
	case KeyEscape:
		g.Close()
	case KeyLeft:
		g.Prev()
	case KeyRight:
		g.Next()
	default:
		return false
	}
	return true
}

func (g *Gallery) Frame() Frame {
	f := g.files[g.index]
	return Frame{
		Index: g.index,
		Total: len(g.files),
		Label: fmt.Sprintf("Attachment %d of %d", g.index+1, len(g.files)),
		Name:  f.Name,
		URL:   f.URL,
		Kind:  KindOf(f),
		Prev:  g.wrap(g.index - 1),
		Next:  g.wrap(g.index + 1),
	}
}

package chunking

import (
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	MinParentLength = 120
	MinChildLength  = 80
)

// Filter is the content quality predicate applied to every chunk.
type Filter interface {
	IsAcceptable(text string) bool
}

type Parent struct {
	ID       string
	Text     string
	Children []Child
}

type Child struct {
	ID       string
	ParentID string
	Text     string
}

type Chunker struct {
	filter Filter
	logger *zap.Logger
}

func NewChunker(filter Filter, logger *zap.Logger) *Chunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{filter: filter, logger: logger}
}

// Build splits text into parents and each parent into children, dropping
// chunks that are too short or fail the filter. Parents that yield no children
// are kept. An empty result means the document has nothing worth storing.
func (c *Chunker) Build(text string, profile Profile) []Parent {
	var parents []Parent
	seenParents := make(map[string]struct{})

	for _, pt := range SplitParents(text, profile) {
		if !c.keep(pt, MinParentLength) {
			continue
		}
		pid := ParentID(pt)
		if _, dup := seenParents[pid]; dup {
			continue
		}
		seenParents[pid] = struct{}{}

		parent := Parent{ID: pid, Text: pt}
		seenChildren := make(map[string]struct{})
		for _, ct := range SplitChildren(pt, profile) {
			if !c.keep(ct, MinChildLength) {
				continue
			}
			cid := ChildID(pid, ct)
			if _, dup := seenChildren[cid]; dup {
				continue
			}
			seenChildren[cid] = struct{}{}
			parent.Children = append(parent.Children, Child{ID: cid, ParentID: pid, Text: ct})
		}

		if len(parent.Children) == 0 {
			c.logger.Debug("parent produced no children", zap.String("parent_id", pid))
		}
		parents = append(parents, parent)
	}

	return parents
}

func (c *Chunker) keep(text string, minLength int) bool {
	if utf8.RuneCountInString(text) < minLength {
		return false
	}
	return c.filter == nil || c.filter.IsAcceptable(text)
}

// CountChildren returns the total number of children across parents.
func CountChildren(parents []Parent) int {
	n := 0
	for _, p := range parents {
		n += len(p.Children)
	}
	return n
}

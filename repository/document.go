package repository

import "time"

const (
	KindParent = "parent"
	KindChild  = "child"
)

// ParentDoc is a retrieval unit handed to the chat model. It carries no vector.
type ParentDoc struct {
	ID        string
	Content   string
	Source    string
	URL       string
	Category  string
	ScrapedAt time.Time
}

// ChildDoc is a search unit. ParentID is a lookup reference only; the parent
// may be missing from the store.
type ChildDoc struct {
	ID        string
	ParentID  string
	Content   string
	Source    string
	URL       string
	Category  string
	ScrapedAt time.Time
	Vector    []float32
}

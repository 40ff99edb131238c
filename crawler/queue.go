package crawler

// Entry is a queued unit of work: either a FetchEntry or an ExpandEntry.
type Entry interface {
	Source() Source
	entry()
}

// FetchEntry is a page to fetch, chunk, embed and store.
type FetchEntry struct {
	Src Source
}

// ExpandEntry is a feed or hub page whose links become new FetchEntries.
type ExpandEntry struct {
	Src Source
}

func (e FetchEntry) Source() Source  { return e.Src }
func (e ExpandEntry) Source() Source { return e.Src }
func (FetchEntry) entry()            {}
func (ExpandEntry) entry()           {}

func NewEntry(src Source) Entry {
	switch src.Type {
	case TypeRSS, TypeHub:
		return ExpandEntry{Src: src}
	default:
		return FetchEntry{Src: src}
	}
}

// Queue is a FIFO that grows while it is drained.
type Queue struct {
	items []Entry
	head  int
}

func (q *Queue) Push(e Entry) {
	q.items = append(q.items, e)
}

func (q *Queue) Pop() (Entry, bool) {
	if q.head >= len(q.items) {
		return nil, false
	}
	e := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	return e, true
}

func (q *Queue) Len() int {
	return len(q.items) - q.head
}

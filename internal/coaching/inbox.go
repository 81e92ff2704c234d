package coaching

import "sync"

// Entry is a delivered message as the operator sees it.
type Entry struct {
	Message Message `json:"message"`
	Unread  bool    `json:"unread"`
}

// Inbox is the live, most-recent-first view of messages delivered during one
// call session. It is owned by the session and discarded with it.
type Inbox struct {
	mu      sync.Mutex
	entries []Entry
	index   map[string]int
}

func NewInbox() *Inbox {
	return &Inbox{index: map[string]int{}}
}

// Deliver prepends m as unread. Redelivery of a known message id is ignored
// and reported as false.
func (b *Inbox) Deliver(m Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.index[m.MessageID]; ok {
		return false
	}
	b.entries = append([]Entry{{Message: m, Unread: m.ReadAt == nil}}, b.entries...)
	for i, e := range b.entries {
		b.index[e.Message.MessageID] = i
	}
	return true
}

// MarkRead clears the unread flag. Marking twice is a no-op; an unknown id
// returns false.
func (b *Inbox) MarkRead(messageID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index[messageID]
	if !ok {
		return false
	}
	b.entries[i].Unread = false
	return true
}

func (b *Inbox) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *Inbox) UnreadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.entries {
		if e.Unread {
			n++
		}
	}
	return n
}

// Package queue holds the URLs that have not been claimed by a worker yet.
package queue

import "sync"

// Queue is a FIFO of pending URLs. It is filled once by New and only
// shrinks afterwards.
type Queue struct {
	mu    sync.Mutex
	items []string
}

func New(urls []string) *Queue {
	items := make([]string, len(urls))
	copy(items, urls)
	return &Queue{items: items}
}

// Take removes and returns the next URL. ok is false once the queue is empty.
func (q *Queue) Take() (url string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	url = q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return url, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

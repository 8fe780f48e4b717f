package store

import (
	"bytes"

	"github.com/iov-one/escrowd/errors"
)

// mergeIterator yields the buffered entries of a cache interleaved with
// the parent iterator. An entry shadows the parent value of the same key.
type mergeIterator struct {
	entries    []*entry
	descending bool

	parent     Iterator
	next       *Model
	parentDone bool
}

var _ Iterator = (*mergeIterator)(nil)

func newMergeIterator(entries []*entry, parent Iterator, descending bool) *mergeIterator {
	return &mergeIterator{
		entries:    entries,
		descending: descending,
		parent:     parent,
	}
}

func (m *mergeIterator) Next() (key, value []byte, err error) {
	for {
		head, err := m.peekParent()
		if err != nil {
			return nil, nil, err
		}

		if len(m.entries) == 0 {
			if head == nil {
				return nil, nil, errors.Wrap(errors.ErrIteratorDone, "cache iterator")
			}
			m.next = nil
			return head.Key, head.Value, nil
		}

		e := m.entries[0]
		if head != nil {
			switch order := m.compare(head.Key, e.key); {
			case order < 0:
				m.next = nil
				return head.Key, head.Value, nil
			case order == 0:
				m.next = nil
			}
		}

		m.entries = m.entries[1:]
		if !e.deleted {
			return e.key, e.value, nil
		}
	}
}

// compare orders two keys in the direction of iteration.
func (m *mergeIterator) compare(a, b []byte) int {
	if m.descending {
		return bytes.Compare(b, a)
	}
	return bytes.Compare(a, b)
}

// peekParent returns the next parent pair without consuming it, or nil
// when the parent is exhausted.
func (m *mergeIterator) peekParent() (*Model, error) {
	if m.next != nil || m.parentDone {
		return m.next, nil
	}
	key, value, err := m.parent.Next()
	switch {
	case errors.ErrIteratorDone.Is(err):
		m.parentDone = true
		return nil, nil
	case err != nil:
		return nil, err
	}
	m.next = &Model{Key: key, Value: value}
	return m.next, nil
}

func (m *mergeIterator) Release() {
	m.parent.Release()
	m.entries = nil
}

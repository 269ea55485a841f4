// Package liststore holds the in-memory, ordered cache of cities shown in the
// UI. Entries are keyed by CityID; positions are derived from the key order and
// deletions compact the sequence.
//
// A Store is owned by a single goroutine (the UI event loop); it does no locking.
package liststore

import "github.com/Makepad-fr/cities/internal/model"

type Store struct {
	items []model.City
	index map[int64]int
}

func New() *Store {
	return &Store{index: map[int64]int{}}
}

// ReplaceAll discards the current contents. Duplicate keys keep their first
// occurrence.
func (s *Store) ReplaceAll(items []model.City) {
	s.items = make([]model.City, 0, len(items))
	s.index = make(map[int64]int, len(items))
	for _, it := range items {
		if _, dup := s.index[it.CityID]; dup {
			continue
		}
		s.index[it.CityID] = len(s.items)
		s.items = append(s.items, it)
	}
}

// InsertAtEnd appends item. An entry with the same key is overwritten in place
// instead, so a key never appears twice.
func (s *Store) InsertAtEnd(item model.City) {
	if i, ok := s.index[item.CityID]; ok {
		s.items[i] = item
		return
	}
	s.index[item.CityID] = len(s.items)
	s.items = append(s.items, item)
}

// ReplaceAt overwrites the entry at index. It reports false when index is out
// of range.
func (s *Store) ReplaceAt(index int, item model.City) bool {
	if index < 0 || index >= len(s.items) {
		return false
	}
	old := s.items[index]
	if old.CityID != item.CityID {
		if j, ok := s.index[item.CityID]; ok && j != index {
			// the new key already lives elsewhere; drop that copy
			s.items[index] = item
			s.items = append(s.items[:j], s.items[j+1:]...)
			s.reindex()
			return true
		}
		delete(s.index, old.CityID)
		s.index[item.CityID] = index
	}
	s.items[index] = item
	return true
}

// RemoveAt deletes the entry at index and shifts later entries down.
func (s *Store) RemoveAt(index int) bool {
	if index < 0 || index >= len(s.items) {
		return false
	}
	s.removeAt(index)
	return true
}

func (s *Store) removeAt(index int) {
	delete(s.index, s.items[index].CityID)
	s.items = append(s.items[:index], s.items[index+1:]...)
	for i := index; i < len(s.items); i++ {
		s.index[s.items[i].CityID] = i
	}
}

func (s *Store) reindex() {
	s.index = make(map[int64]int, len(s.items))
	for i, it := range s.items {
		s.index[it.CityID] = i
	}
}

// IndexOf returns the current position of id, or -1.
func (s *Store) IndexOf(id int64) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

func (s *Store) Get(id int64) (model.City, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.City{}, false
	}
	return s.items[i], true
}

// Replace overwrites the entry keyed by id, keeping its position.
func (s *Store) Replace(id int64, item model.City) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	return s.ReplaceAt(i, item)
}

func (s *Store) Remove(id int64) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.removeAt(i)
	return true
}

func (s *Store) At(index int) (model.City, bool) {
	if index < 0 || index >= len(s.items) {
		return model.City{}, false
	}
	return s.items[index], true
}

func (s *Store) Len() int { return len(s.items) }

// Items returns a copy in display order.
func (s *Store) Items() []model.City {
	out := make([]model.City, len(s.items))
	copy(out, s.items)
	return out
}

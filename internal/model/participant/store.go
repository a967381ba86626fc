package participant

// Store exposes participant retrieval for HTTP handlers and the session service.
type Store interface {
	List() []Participant
	FindByID(id string) (Participant, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Participant
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied participants.
func NewMemoryStore(items []Participant) *MemoryStore {
	return &MemoryStore{items: append([]Participant(nil), items...)}
}

// List returns a copy of all participants.
func (s *MemoryStore) List() []Participant {
	return append([]Participant(nil), s.items...)
}

// FindByID looks up a participant by identifier.
func (s *MemoryStore) FindByID(id string) (Participant, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Participant{}, false
}

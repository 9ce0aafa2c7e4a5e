package assignments

// SnapshotObserver is an Observer of the Store
type SnapshotObserver interface {
	OnSnapshotChanged(snapshot []Assignment)
}

// SnapshotObservable is an Observable
type SnapshotObservable interface {
	Subscribe(o SnapshotObserver)
	Unsubscribe(o SnapshotObserver)
}

// Subscribe registers o for snapshot changes
func (s *Store) Subscribe(o SnapshotObserver) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	s.subscribers = append(s.subscribers, o)
}

// Unsubscribe removes o, unknown observers are ignored
func (s *Store) Unsubscribe(o SnapshotObserver) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for i, subscriber := range s.subscribers {
		if subscriber == o {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			return
		}
	}
}

// publish hands every subscriber its own copy of the snapshot. Called after mu was released.
func (s *Store) publish() {
	s.subscribersMu.Lock()
	subscribers := append([]SnapshotObserver{}, s.subscribers...)
	s.subscribersMu.Unlock()

	if len(subscribers) == 0 {
		return
	}

	snapshot := s.All()
	for _, subscriber := range subscribers {
		subscriber.OnSnapshotChanged(copyAssignments(snapshot))
	}
}

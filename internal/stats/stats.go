package stats

// Stats counts buffer cache events. A nil *Stats is valid and records nothing.
type Stats struct {
	hits      *counter
	misses    *counter
	borrows   *counter
	evictions *counter
	retries   *counter
	reads     *counter
	writes    *counter
	ioErrors  *counter
}

func New() *Stats {
	return &Stats{
		hits:      newCounter(),
		misses:    newCounter(),
		borrows:   newCounter(),
		evictions: newCounter(),
		retries:   newCounter(),
		reads:     newCounter(),
		writes:    newCounter(),
		ioErrors:  newCounter(),
	}
}

func (s *Stats) IncHits() {
	if s == nil {
		return
	}

	s.hits.increment()
}

func (s *Stats) Hits() int64 {
	if s == nil {
		return 0
	}

	return s.hits.value()
}

func (s *Stats) IncMisses() {
	if s == nil {
		return
	}

	s.misses.increment()
}

func (s *Stats) Misses() int64 {
	if s == nil {
		return 0
	}

	return s.misses.value()
}

// IncBorrows counts a claim of a free buffer from a pool other than the key's home bucket.
func (s *Stats) IncBorrows() {
	if s == nil {
		return
	}

	s.borrows.increment()
}

func (s *Stats) Borrows() int64 {
	if s == nil {
		return 0
	}

	return s.borrows.value()
}

// IncEvictions counts a buffer dropping its last reference and leaving its list.
func (s *Stats) IncEvictions() {
	if s == nil {
		return
	}

	s.evictions.increment()
}

func (s *Stats) Evictions() int64 {
	if s == nil {
		return 0
	}

	return s.evictions.value()
}

// IncRetries counts lookups restarted after an out-of-order lock could not be taken.
func (s *Stats) IncRetries() {
	if s == nil {
		return
	}

	s.retries.increment()
}

func (s *Stats) Retries() int64 {
	if s == nil {
		return 0
	}

	return s.retries.value()
}

func (s *Stats) IncReads() {
	if s == nil {
		return
	}

	s.reads.increment()
}

func (s *Stats) Reads() int64 {
	if s == nil {
		return 0
	}

	return s.reads.value()
}

func (s *Stats) IncWrites() {
	if s == nil {
		return
	}

	s.writes.increment()
}

func (s *Stats) Writes() int64 {
	if s == nil {
		return 0
	}

	return s.writes.value()
}

func (s *Stats) IncIOErrors() {
	if s == nil {
		return
	}

	s.ioErrors.increment()
}

func (s *Stats) IOErrors() int64 {
	if s == nil {
		return 0
	}

	return s.ioErrors.value()
}

func (s *Stats) Ratio() float64 {
	if s == nil {
		return 0.0
	}

	hits := s.hits.value()
	misses := s.misses.value()
	if hits == 0 && misses == 0 {
		return 0.0
	}
	return float64(hits) / float64(hits+misses)
}

func (s *Stats) Clear() {
	if s == nil {
		return
	}

	s.hits.reset()
	s.misses.reset()
	s.borrows.reset()
	s.evictions.reset()
	s.retries.reset()
	s.reads.reset()
	s.writes.reset()
	s.ioErrors.reset()
}

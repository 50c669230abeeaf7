package rates

// Allow is a fixed-window counter: at most max events per window ticks.
// It returns the updated window state and, when denied, the ticks until the
// window resets.
func Allow(nowTick uint64, startTick uint64, count int, window uint64, max int) (newStart uint64, newCount int, ok bool, cooldownTicks uint64) {
	newStart = startTick
	newCount = count
	if window == 0 || max <= 0 {
		return newStart, newCount, true, 0
	}

	if nowTick-newStart >= window {
		newStart = nowTick
		newCount = 0
	}
	newCount++
	if newCount <= max {
		return newStart, newCount, true, 0
	}
	return newStart, newCount, false, (newStart + window) - nowTick
}

// Event is one recorded delivery.
type Event struct {
	At    float64 `json:"at"`
	Count int     `json:"count"`
}

// Sliding keeps timestamped events for the last Span seconds.
type Sliding struct {
	Span   float64
	Events []Event
}

func NewSliding(span float64) *Sliding { return &Sliding{Span: span} }

func (s *Sliding) Add(now float64, n int) {
	if n <= 0 {
		return
	}
	s.Events = append(s.Events, Event{At: now, Count: n})
}

// Trim drops events older than Span.
func (s *Sliding) Trim(now float64) {
	cut := 0
	for cut < len(s.Events) && now-s.Events[cut].At > s.Span {
		cut++
	}
	if cut > 0 {
		s.Events = append(s.Events[:0], s.Events[cut:]...)
	}
}

func (s *Sliding) Total() int {
	n := 0
	for _, e := range s.Events {
		n += e.Count
	}
	return n
}

// PerMinute scales the windowed total to a per-minute rate.
func (s *Sliding) PerMinute() float64 {
	if s.Span <= 0 {
		return 0
	}
	return float64(s.Total()) * 60 / s.Span
}

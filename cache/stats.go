package cache

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits        uint64 `json:"hits" yaml:"hits"`
	Misses      uint64 `json:"misses" yaml:"misses"`
	Expirations uint64 `json:"expirations" yaml:"expirations"`
	Evictions   uint64 `json:"evictions" yaml:"evictions"`
	Size        int    `json:"size" yaml:"size"`
}

// HitRatio returns Hits / (Hits + Misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

package session

// InsightsKey is the flag controlling the detailed insights panel of a plot.
func InsightsKey(plot string) string { return "insights:" + plot }

// RecommendationKey is the flag controlling the recommendation panel of a plot.
func RecommendationKey(plot string) string { return "recommendation:" + plot }

// RecommendationTextKey holds the cached recommendation text of a plot.
func RecommendationTextKey(plot string) string { return "recommendation_text:" + plot }

// Toggle flips a boolean flag and returns its new value. An unset flag
// counts as false, so the first toggle turns it on.
func Toggle(s Store, key string) bool {
	v := s.Update(key, func(cur any, ok bool) any {
		b, _ := cur.(bool)
		return !b
	})
	return v.(bool)
}

// Flag reads a boolean flag, defaulting to false.
func Flag(s Store, key string) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// CachedText returns the cached text under key. A nil or absent value means
// nothing is cached.
func CachedText(s Store, key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return "", false
	}
	text, ok := v.(string)
	return text, ok
}

// SetCachedText stores text under key.
func SetCachedText(s Store, key, text string) {
	s.Set(key, text)
}

// ClearCachedText resets key to nil so the next read regenerates it.
func ClearCachedText(s Store, key string) {
	s.Set(key, nil)
}

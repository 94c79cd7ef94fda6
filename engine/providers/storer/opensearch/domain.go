package opensearch

import (
	"fmt"
	"math"
	"time"

	getsafe "github.com/w-h-a/upserter/util/get_safe"
)

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	Id     string         `json:"_id"`
	Score  float64        `json:"_score"`
	Source map[string]any `json:"_source"`
}

type getResponse struct {
	Id     string         `json:"_id"`
	Found  bool           `json:"found"`
	Source map[string]any `json:"_source"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("opensearch http %d: %s", e.code, e.body)
}

// Timestamps are stored as fractional unix seconds.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timestamp(source map[string]any, key string) time.Time {
	switch v := source[key].(type) {
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
	case string:
		return getsafe.Time(source, key)
	}
	return time.Time{}
}

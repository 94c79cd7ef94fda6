package getsafe

import "time"

func String(payload map[string]any, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Strings(payload map[string]any, key string) []string {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	switch vs := v.(type) {
	case []string:
		return append([]string(nil), vs...)
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{vs}
	}
	return nil
}

// Float32s reads a numeric array decoded from JSON.
func Float32s(payload map[string]any, key string) []float32 {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	switch vs := v.(type) {
	case []float32:
		return append([]float32(nil), vs...)
	case []float64:
		out := make([]float32, len(vs))
		for i, f := range vs {
			out[i] = float32(f)
		}
		return out
	case []any:
		out := make([]float32, 0, len(vs))
		for _, item := range vs {
			if f, ok := item.(float64); ok {
				out = append(out, float32(f))
			}
		}
		return out
	}
	return nil
}

func Time(payload map[string]any, key string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, String(payload, key))
	return t
}

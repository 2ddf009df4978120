package model

import "encoding/json"

// Intention is the structured output of the reportability classifier.
// Score is on a 0-100 scale; Fields keeps every key the model returned.
type Intention struct {
	Score  float64        `json:"Score"`
	Fields map[string]any `json:"-"`
}

// MarshalJSON writes the original object so a persisted intention round-trips
// with all classifier keys intact.
func (i Intention) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Fields)+1)
	for k, v := range i.Fields {
		out[k] = v
	}
	out["Score"] = i.Score
	return json.Marshal(out)
}

func (i *Intention) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if s, ok := raw["Score"].(float64); ok {
		i.Score = s
	}
	i.Fields = raw
	return nil
}

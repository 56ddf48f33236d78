package tracker

import "encoding/json"

func unmarshalValue(raw []byte, v any) error {
	return json.Unmarshal(raw, v)
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

package sitemail

import "encoding/json"

// Marshal encodes a value for transmission over the message broker.
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes a value received from the message broker.
func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

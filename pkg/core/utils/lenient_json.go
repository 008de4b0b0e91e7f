package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ErrUnparseable is returned by SmartParse when no strategy yields a document
// that decodes into the target.
var ErrUnparseable = errors.New("no JSON parsing strategy succeeded")

// Normalizers run from strictest to most forgiving.
var normalizers = []func(string) (string, error){
	func(s string) (string, error) { return s, nil },
	jsonrepair.RepairJSON,
	ParseHJSON,
}

// ParseHJSON converts Hjson (comments, unquoted keys, trailing commas) to plain JSON.
func ParseHJSON(input string) (string, error) {
	var v interface{}
	if err := hjson.Unmarshal([]byte(input), &v); err != nil {
		return "", fmt.Errorf("hjson: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SmartParse decodes model output into dst, trying plain JSON, then json-repair,
// then Hjson. It returns the normalized JSON text that decoded.
func SmartParse(input string, dst interface{}) (string, error) {
	for _, normalize := range normalizers {
		doc, err := normalize(input)
		if err != nil {
			continue
		}
		if json.Unmarshal([]byte(doc), dst) == nil {
			return doc, nil
		}
	}
	return "", ErrUnparseable
}

package qwen

import (
	"encoding/json"
	"sort"
)

// contentKeys are the envelope keys known to carry generated content, in
// lookup priority order.
var contentKeys = []string{"text", "content", "data", "parts", "items"}

// ExtractFromJSON unmarshals a response envelope and extracts its generated
// text. A body that is not JSON yields no strings; absence is a normal
// outcome, not an error.
func ExtractFromJSON(body []byte) []string {
	var envelope interface{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	return ExtractText(envelope)
}

// ExtractText walks an arbitrary response envelope and collects every string
// reachable via known content-bearing keys, preserving encounter order.
// Objects without any known key are walked through all keys (sorted, since
// JSON object order is not preserved by decoding). Works for nested
// output.choices[].message.content[].text shapes as well as flat text
// fields. Never returns an error.
func ExtractText(envelope interface{}) []string {
	var texts []string
	walk(envelope, &texts)
	return texts
}

func walk(v interface{}, texts *[]string) {
	switch node := v.(type) {
	case string:
		*texts = append(*texts, node)
	case []interface{}:
		for _, el := range node {
			walk(el, texts)
		}
	case map[string]interface{}:
		matched := false
		for _, key := range contentKeys {
			if child, ok := node[key]; ok {
				matched = true
				walk(child, texts)
			}
		}
		if matched {
			return
		}
		keys := make([]string, 0, len(node))
		for key := range node {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			walk(node[key], texts)
		}
	}
}

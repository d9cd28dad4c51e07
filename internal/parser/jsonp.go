package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// jsonpPattern captures the object passed to a JSONP callback: name({...});
var jsonpPattern = regexp.MustCompile(`(?s)^[^(]*\(\s*(\{.*\})\s*\)\s*;?\s*$`)

// UnwrapJSONP strips the callback wrapper from a JSONP response. Bodies that are
// already plain JSON objects are returned unchanged.
func UnwrapJSONP(body string) ([]byte, error) {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "{") {
		return []byte(body), nil
	}

	match := jsonpPattern.FindStringSubmatch(body)
	if match == nil {
		return nil, fmt.Errorf("response is not a JSONP callback")
	}
	payload := []byte(match[1])
	if !json.Valid(payload) {
		return nil, fmt.Errorf("JSONP payload is not valid JSON")
	}
	return payload, nil
}

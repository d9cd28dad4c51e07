package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nextDataSelector locates the state blob that Next.js pages embed.
const nextDataSelector = "script#__NEXT_DATA__"

// NextData is the top level of a Next.js __NEXT_DATA__ document.
type NextData struct {
	Page    string `json:"page"`
	BuildID string `json:"buildId"`
	Props   struct {
		PageProps map[string]json.RawMessage `json:"pageProps"`
	} `json:"props"`
}

// ParseNextData reads an HTML page and decodes its __NEXT_DATA__ script.
func ParseNextData(body io.Reader, contentType string) (*NextData, error) {
	utf8Body, err := NewUTF8Reader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	script := doc.Find(nextDataSelector).First()
	if script.Length() == 0 {
		return nil, fmt.Errorf("page has no __NEXT_DATA__ script")
	}

	var data NextData
	if err := json.Unmarshal([]byte(strings.TrimSpace(script.Text())), &data); err != nil {
		return nil, fmt.Errorf("invalid __NEXT_DATA__ JSON: %w", err)
	}
	return &data, nil
}

// PageProp decodes props.pageProps[key] into v. Some sites ship the prop as a
// JSON document serialized into a string; that form is unwrapped transparently.
func (n *NextData) PageProp(key string, v any) error {
	raw, ok := n.Props.PageProps[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("pageProps.%s is missing", key)
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return fmt.Errorf("pageProps.%s: %w", key, err)
		}
		raw = json.RawMessage(encoded)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("pageProps.%s: %w", key, err)
	}
	return nil
}

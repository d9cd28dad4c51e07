package testutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GenerateNextDataHTML renders a play page whose __NEXT_DATA__ script carries
// pageProps. Values of stringProps are embedded as JSON encoded strings, the way
// WeTV ships its "data" prop.
func GenerateNextDataHTML(pageProps map[string]any, stringProps ...string) string {
	props := make(map[string]any, len(pageProps))
	for key, value := range pageProps {
		props[key] = value
	}
	for _, key := range stringProps {
		raw, err := json.Marshal(props[key])
		if err != nil {
			panic(err)
		}
		props[key] = string(raw)
	}

	next, err := json.Marshal(map[string]any{
		"page":    "/play/[cid]/[vid]",
		"buildId": "test",
		"props":   map[string]any{"pageProps": props},
	})
	if err != nil {
		panic(err)
	}

	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>WeTV</title></head><body>`)
	sb.WriteString(`<div id="__next"></div>`)
	fmt.Fprintf(&sb, `<script id="__NEXT_DATA__" type="application/json">%s</script>`, next)
	sb.WriteString(`</body></html>`)
	return sb.String()
}

// GenerateJSONP wraps v in a JSONP callback.
func GenerateJSONP(callback string, v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s(%s)", callback, raw)
}

// GenerateVTT renders a WebVTT document with one cue per text, one second each.
func GenerateVTT(texts ...string) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n")
	for i, text := range texts {
		fmt.Fprintf(&sb, "\n%d\n00:00:%02d.000 --> 00:00:%02d.500\n%s\n", i+1, i+1, i+1, text)
	}
	return sb.String()
}

// GenerateMediaPlaylist renders an HLS media playlist listing segments.
func GenerateMediaPlaylist(segments ...string) string {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:600\n#EXT-X-MEDIA-SEQUENCE:0\n")
	for _, segment := range segments {
		fmt.Fprintf(&sb, "#EXTINF:600.0,\n%s\n", segment)
	}
	sb.WriteString("#EXT-X-ENDLIST\n")
	return sb.String()
}

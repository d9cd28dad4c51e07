package parser

import (
	"bytes"
	"fmt"
	"io"
	"net/url"

	"github.com/grafov/m3u8"
)

// Playlist is the resolved content of an HLS playlist.
type Playlist struct {
	// Segments holds absolute segment URLs of a media playlist, in playback order.
	Segments []string
	// Variants holds absolute variant URLs of a master playlist.
	Variants []string
}

// ParsePlaylist decodes an m3u8 document and resolves every URI against base.
func ParsePlaylist(body io.Reader, base string) (*Playlist, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid playlist URL %q: %w", base, err)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}

	decoded, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, fmt.Errorf("failed to decode playlist: %w", err)
	}

	result := &Playlist{}
	switch listType {
	case m3u8.MEDIA:
		media := decoded.(*m3u8.MediaPlaylist)
		for _, seg := range media.Segments {
			if seg == nil {
				continue
			}
			abs, err := resolve(baseURL, seg.URI)
			if err != nil {
				return nil, err
			}
			result.Segments = append(result.Segments, abs)
		}
	case m3u8.MASTER:
		master := decoded.(*m3u8.MasterPlaylist)
		for _, variant := range master.Variants {
			if variant == nil {
				continue
			}
			abs, err := resolve(baseURL, variant.URI)
			if err != nil {
				return nil, err
			}
			result.Variants = append(result.Variants, abs)
		}
	}
	return result, nil
}

func resolve(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid playlist entry %q: %w", ref, err)
	}
	return base.ResolveReference(u).String(), nil
}

package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/asticode/go-astisub"
	"github.com/rs/zerolog"
)

// Converter normalizes downloaded subtitles to SubRip.
type Converter interface {
	// Convert writes path as .srt next to it, removes the source and returns the new path.
	Convert(path string) (string, error)
	// ConvertDir converts every non-.srt file directly inside dir.
	ConvertDir(dir string) ([]string, error)
}

// convertible lists the source formats the converter reads.
var convertible = map[string]bool{
	".vtt":  true,
	".ttml": true,
	".dfxp": true,
	".xml":  true,
	".ssa":  true,
	".ass":  true,
}

// SubtitleConverter converts with go-astisub.
type SubtitleConverter struct {
	logger zerolog.Logger
}

// NewSubtitleConverter creates a SubtitleConverter.
func NewSubtitleConverter(logger zerolog.Logger) *SubtitleConverter {
	return &SubtitleConverter{logger: logger.With().Str("component", "converter").Logger()}
}

// Convert implements Converter.
func (c *SubtitleConverter) Convert(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".srt" {
		return path, nil
	}
	if !convertible[ext] {
		return "", fmt.Errorf("unsupported subtitle format %q", ext)
	}

	subs, err := open(path, ext)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	subs.Optimize()
	subs.Unfragment()

	target := strings.TrimSuffix(path, filepath.Ext(path)) + ".srt"
	if err := subs.Write(target); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(target), err)
	}
	if err := os.Remove(path); err != nil {
		return target, fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}

	c.logger.Debug().Str("from", filepath.Base(path)).Str("to", filepath.Base(target)).Msg("Converted subtitle")
	return target, nil
}

func open(path, ext string) (*astisub.Subtitles, error) {
	switch ext {
	case ".dfxp", ".xml":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return astisub.ReadFromTTML(f)
	default:
		return astisub.OpenFile(path)
	}
}

// ConvertDir implements Converter. A file that fails to convert is reported
// without stopping the others.
func (c *SubtitleConverter) ConvertDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.Type().IsRegular() && ext != ".srt" && convertible[ext] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, nil
	}

	c.logger.Info().Str("dir", filepath.Base(dir)).Int("files", len(names)).Msg("Converting subtitles to .srt")

	var converted []string
	var errs []error
	for _, name := range names {
		out, err := c.Convert(filepath.Join(dir, name))
		if err != nil {
			c.logger.Error().Err(err).Str("file", name).Msg("Conversion failed")
			errs = append(errs, err)
			continue
		}
		converted = append(converted, out)
	}
	return converted, errors.Join(errs...)
}

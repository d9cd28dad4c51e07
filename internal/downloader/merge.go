package downloader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
)

// FragmentName returns the zero padded name of fragment index, which keeps
// lexicographic order equal to playback order.
func FragmentName(index int, ext string) string {
	return fmt.Sprintf("%05d%s", index, ext)
}

// MergeFragments concatenates the files of sourceDir in lexicographic name order
// into outputPath and removes sourceDir. The output is written to a temporary file
// and renamed into place, so a crash never leaves a truncated subtitle behind.
// WebVTT fragments keep only the first file's header block.
func MergeFragments(sourceDir, outputPath string) error {
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return apperrors.NewNotFoundError("fragment directory", sourceDir)
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return fmt.Errorf("list fragments: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), partSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	outDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}
	tmp, err := os.CreateTemp(outDir, ".merge-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	vtt := strings.EqualFold(filepath.Ext(outputPath), ".vtt")
	w := bufio.NewWriter(tmp)
	for i, name := range names {
		if err := appendFragment(w, filepath.Join(sourceDir, name), vtt, i > 0); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", outputPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", outputPath, err)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		return fmt.Errorf("rename into %s: %w", outputPath, err)
	}

	return os.RemoveAll(sourceDir)
}

// appendFragment copies one fragment into w. Non WebVTT fragments are copied
// byte for byte. WebVTT fragments after the first lose their header, and every
// WebVTT fragment ends with a blank line so cues of neighbouring fragments stay
// separate blocks.
func appendFragment(w io.Writer, path string, vtt, later bool) error {
	if !vtt {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("read fragment: %w", err)
		}
		defer f.Close()
		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("append fragment %s: %w", filepath.Base(path), err)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fragment: %w", err)
	}
	if later {
		data = stripVTTHeader(data)
	}
	data = bytes.TrimRight(data, "\r\n")
	if len(data) == 0 {
		return nil
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("append fragment %s: %w", filepath.Base(path), err)
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}

// stripVTTHeader drops a leading "WEBVTT" block (header line plus metadata lines
// up to the first blank line).
func stripVTTHeader(data []byte) []byte {
	trimmed := bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(trimmed, []byte("WEBVTT")) {
		return data
	}
	normalized := bytes.ReplaceAll(trimmed, []byte("\r\n"), []byte("\n"))
	if idx := bytes.Index(normalized, []byte("\n\n")); idx >= 0 {
		return normalized[idx+2:]
	}
	return nil
}

package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/models"
)

// Archiver bundles a title folder into one archive.
type Archiver interface {
	// Archive packs the .srt files below dir and returns the archive path.
	Archive(dir string, platform models.Platform) (string, error)
}

// ZipArchiver writes deflate-compressed zip archives.
type ZipArchiver struct {
	logger zerolog.Logger
}

// NewZipArchiver creates a ZipArchiver.
func NewZipArchiver(logger zerolog.Logger) *ZipArchiver {
	return &ZipArchiver{logger: logger.With().Str("component", "archiver").Logger()}
}

// ArchiveName returns "<folder>.WEB-DL.<platform>.zip" for the title folder dir.
func ArchiveName(dir string, platform models.Platform) string {
	return fmt.Sprintf("%s.WEB-DL.%s.zip", filepath.Base(filepath.Clean(dir)), platform)
}

// Archive implements Archiver. Entries keep their path relative to dir, so
// language subfolders survive inside the archive. The archive is placed in dir.
func (a *ZipArchiver) Archive(dir string, platform models.Platform) (string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), ".srt") {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no subtitles to archive in %s", dir)
	}
	sort.Strings(files)

	target := filepath.Join(dir, ArchiveName(dir, platform))
	tmp, err := os.CreateTemp(dir, ".archive-*")
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw := zip.NewWriter(tmp)
	for _, rel := range files {
		if err := addFile(zw, dir, rel); err != nil {
			zw.Close()
			tmp.Close()
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("rename archive: %w", err)
	}

	a.logger.Info().Str("archive", filepath.Base(target)).Int("files", len(files)).Msg("Archived subtitles")
	return target, nil
}

func addFile(zw *zip.Writer, dir, rel string) error {
	path := filepath.Join(dir, rel)
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", rel, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("compress %s: %w", rel, err)
	}
	return nil
}

package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/downloader"
	"github.com/Belphemur/SubtitleRipper/internal/locale"
	"github.com/Belphemur/SubtitleRipper/internal/models"
)

// Batch is everything a run collected for one title folder.
type Batch struct {
	Folder       string   // title folder below the download root
	LanguageDirs []string // per-language folders, converted before the title folder
	Descriptors  []models.SubtitleDescriptor
	Fragments    []models.FragmentGroup
}

// Base carries the collaborators and the run state shared by extractors.
type Base struct {
	Deps

	platform         models.Platform
	fallbackLanguage string
	state            models.RunState
	logger           zerolog.Logger
}

// NewBase creates a Base for platform. fallbackLanguage is used when the user
// requests no language.
func NewBase(platform models.Platform, fallbackLanguage string, deps Deps) Base {
	return Base{
		Deps:             deps,
		platform:         platform,
		fallbackLanguage: fallbackLanguage,
		state:            models.RunStateStart,
		logger:           deps.Logger.With().Str("component", "extractor").Str("platform", platform.String()).Logger(),
	}
}

// Platform implements Extractor.
func (b *Base) Platform() models.Platform {
	return b.platform
}

// Logger returns the extractor's logger.
func (b *Base) Logger() *zerolog.Logger {
	return &b.logger
}

// ResolveLanguages implements Extractor using the platform's fallback language.
func (b *Base) ResolveLanguages(requested, available []string) (models.LanguageSet, error) {
	return ResolveLanguages(requested, available, b.fallbackLanguage)
}

// State returns the current run state.
func (b *Base) State() models.RunState {
	return b.state
}

// Transition moves the run to the next state.
func (b *Base) Transition(to models.RunState) {
	b.logger.Debug().Str("from", b.state.String()).Str("to", to.String()).Msg("Run state changed")
	b.state = to
}

// Fail marks the run failed and returns err.
func (b *Base) Fail(err error) error {
	if err != nil && !apperrors.IsGraceful(err) {
		b.Transition(models.RunStateFailed)
	} else {
		b.Transition(models.RunStateDone)
	}
	return err
}

// PrepareFolder removes what an earlier run left in path and creates it again.
func (b *Base) PrepareFolder(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("clean %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

// Deliver downloads the batch, merges fragmented subtitles, converts every
// language folder and then the title folder, archives the title folder and
// finally moves it to the output directory when one is set.
func (b *Base) Deliver(ctx context.Context, rc *Context, batch Batch) error {
	if len(batch.Descriptors) == 0 {
		b.logger.Info().Str("folder", filepath.Base(batch.Folder)).Msg("Nothing to download")
		b.Transition(models.RunStateDone)
		return nil
	}

	report := b.Downloader.DownloadAll(ctx, batch.Descriptors)
	b.logger.Info().Msg(rc.Sprintf(locale.DownloadSummary, report.Done, report.Skipped, report.Failed))
	if err := ctx.Err(); err != nil {
		return b.Fail(err)
	}
	b.Transition(models.RunStateDownloaded)

	for _, group := range batch.Fragments {
		if err := b.mergeGroup(group); err != nil {
			return b.Fail(err)
		}
	}

	langDirs := append([]string(nil), batch.LanguageDirs...)
	sort.Strings(langDirs)
	for _, dir := range langDirs {
		if dir == batch.Folder {
			continue
		}
		if _, err := b.Converter.ConvertDir(dir); err != nil {
			return b.Fail(fmt.Errorf("convert %s: %w", filepath.Base(dir), err))
		}
	}
	if _, err := b.Converter.ConvertDir(batch.Folder); err != nil {
		return b.Fail(fmt.Errorf("convert %s: %w", filepath.Base(batch.Folder), err))
	}
	b.Transition(models.RunStateConverted)

	if report.Done > 0 {
		archive, err := b.Archiver.Archive(batch.Folder, b.platform)
		if err != nil {
			return b.Fail(fmt.Errorf("archive %s: %w", filepath.Base(batch.Folder), err))
		}
		b.logger.Info().Str("archive", filepath.Base(archive)).Msg("Subtitles archived")
		b.Transition(models.RunStateArchived)
	}

	if rc.OutputDir != "" {
		dest, err := moveFolder(batch.Folder, rc.OutputDir)
		if err != nil {
			return b.Fail(err)
		}
		b.logger.Info().Str("output", dest).Msg("Moved subtitles to output directory")
	}

	if report.Failed > 0 {
		return b.Fail(fmt.Errorf("%d of %d downloads failed: %w",
			report.Failed, len(report.Tasks), errors.Join(report.Errors()...)))
	}
	b.Transition(models.RunStateDone)
	return nil
}

// mergeGroup merges one fragment folder. A folder whose fragments were all
// missing upstream is dropped.
func (b *Base) mergeGroup(group models.FragmentGroup) error {
	entries, err := os.ReadDir(group.Dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("list fragments: %w", err)
	}
	if len(entries) == 0 {
		b.logger.Warn().Str("file", filepath.Base(group.Output)).Msg("No fragments downloaded, skipping merge")
		return os.RemoveAll(group.Dir)
	}

	b.logger.Info().Str("file", filepath.Base(group.Output)).Int("fragments", len(entries)).Msg("Merging subtitle fragments")
	return downloader.MergeFragments(group.Dir, group.Output)
}

// moveFolder moves folder into outputDir, replacing an earlier copy, and
// returns the new location. Moves across filesystems fall back to copying.
func moveFolder(folder, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", outputDir, err)
	}
	dest := filepath.Join(outputDir, filepath.Base(folder))
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("clean %s: %w", dest, err)
	}
	if err := os.Rename(folder, dest); err == nil {
		return dest, nil
	}
	if err := copyTree(folder, dest); err != nil {
		return "", fmt.Errorf("copy %s: %w", folder, err)
	}
	return dest, os.RemoveAll(folder)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

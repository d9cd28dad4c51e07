// Package cli parses the command line and runs one extraction.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Belphemur/SubtitleRipper/internal/models"
)

// Options is the parsed command line. Settings that also live in the
// configuration file stay on Flags and are resolved through config.LoadConfig.
type Options struct {
	URL         string
	Seasons     models.IntSet
	Episodes    models.IntSet
	LastEpisode bool
	Flags       *pflag.FlagSet
}

// NewFlagSet declares every command line flag.
func NewFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SortFlags = false
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: %s [flags] URL\n\nDownload subtitles of a streaming title.\n\nFlags:\n", name)
		flags.PrintDefaults()
	}

	flags.StringP("language", "l", "", `subtitle languages, comma separated, or "all"`)
	flags.StringP("season", "s", "", "seasons to download, e.g. 1,3-5")
	flags.StringP("episode", "e", "", "episodes to download, e.g. 1,3-5")
	flags.Bool("last-episode", false, "download only the last episode")
	flags.StringP("output", "o", "", "move the finished title folder into this directory")
	flags.String("download-path", "", "working directory for downloads")
	flags.Bool("headless", true, "run the browser without a window")
	flags.String("config", "", "configuration file path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("proxy", "", "proxy URL (http, https or socks5)")
	flags.String("locale", "", "language of user-facing messages (en, zh-Hant)")
	return flags
}

// Parse parses args (without the program name). It returns pflag.ErrHelp when
// help was requested.
func Parse(name string, args []string) (*Options, error) {
	flags := NewFlagSet(name)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return nil, fmt.Errorf("expected exactly one URL, got %d arguments", flags.NArg())
	}
	url := strings.TrimSpace(flags.Arg(0))
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("invalid URL %q", url)
	}

	seasonFlag, _ := flags.GetString("season")
	seasons, err := models.ParseIntSet(seasonFlag)
	if err != nil {
		return nil, fmt.Errorf("--season: %w", err)
	}
	episodeFlag, _ := flags.GetString("episode")
	episodes, err := models.ParseIntSet(episodeFlag)
	if err != nil {
		return nil, fmt.Errorf("--episode: %w", err)
	}
	last, _ := flags.GetBool("last-episode")

	return &Options{
		URL:         url,
		Seasons:     seasons,
		Episodes:    episodes,
		LastEpisode: last,
		Flags:       flags,
	}, nil
}

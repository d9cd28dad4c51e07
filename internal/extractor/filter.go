package extractor

import "github.com/Belphemur/SubtitleRipper/internal/models"

// Episode is one entry of a series episode list.
type Episode struct {
	Number  int
	ID      string
	Trailer bool
}

// FilterEpisodes keeps the episodes of season selected by the season and episode
// filters, trailers excluded. With lastOnly only the last non-trailer episode of
// the list is considered.
func FilterEpisodes(list []Episode, season int, seasons, episodes models.IntSet, lastOnly bool) []Episode {
	if !seasons.Matches(season) {
		return nil
	}

	if lastOnly {
		for i := len(list) - 1; i >= 0; i-- {
			if !list[i].Trailer {
				list = list[i : i+1]
				break
			}
		}
	}

	var out []Episode
	for _, ep := range list {
		if ep.Trailer || !episodes.Matches(ep.Number) {
			continue
		}
		out = append(out, ep)
	}
	return out
}

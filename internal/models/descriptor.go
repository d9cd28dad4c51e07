package models

import "path/filepath"

// SubtitleDescriptor is one unit of downloadable subtitle work, built by an extractor
// per (episode, language) pair and consumed exactly once by the download subsystem.
type SubtitleDescriptor struct {
	FileName       string `json:"fileName"`
	DestinationDir string `json:"destinationDir"`
	SourceURL      string `json:"sourceUrl"`
}

// Path returns the full destination path of the descriptor.
func (d SubtitleDescriptor) Path() string {
	return filepath.Join(d.DestinationDir, d.FileName)
}

// FragmentGroup describes fragments downloaded into Dir that must be concatenated into Output
// once the batch is on disk.
type FragmentGroup struct {
	Dir    string
	Output string
}

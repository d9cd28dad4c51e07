package models

// RunState is a step of the per-title extraction state machine.
type RunState string

const (
	RunStateStart             RunState = "Start"
	RunStateLanguagesResolved RunState = "LanguagesResolved"
	RunStateMetadataFetched   RunState = "MetadataFetched"
	RunStateMovieBranch       RunState = "MovieBranch"
	RunStateSeriesBranch      RunState = "SeriesBranch"
	RunStateDescriptorsBuilt  RunState = "DescriptorsBuilt"
	RunStateDownloaded        RunState = "Downloaded"
	RunStateConverted         RunState = "Converted"
	RunStateArchived          RunState = "Archived"
	RunStateDone              RunState = "Done"
	RunStateFailed            RunState = "Failed"
)

// String returns the string representation of RunState
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true for Done and Failed.
func (s RunState) IsTerminal() bool {
	return s == RunStateDone || s == RunStateFailed
}

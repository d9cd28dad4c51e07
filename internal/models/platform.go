package models

// Platform identifies a streaming service. It is used as the registry dispatch key
// and as the tag embedded in output file names.
type Platform string

const (
	PlatformKKTV        Platform = "KKTV"
	PlatformLineTV      Platform = "LineTV"
	PlatformFridayVideo Platform = "FridayVideo"
	PlatformCatchPlay   Platform = "CatchPlay"
	PlatformIQIYI       Platform = "iQIYI"
	PlatformWeTV        Platform = "WeTV"
	PlatformViu         Platform = "Viu"
	PlatformNowE        Platform = "NowE"
	PlatformNowPlayer   Platform = "NowPlayer"
	PlatformHBOGOAsia   Platform = "HBOGOAsia"
	PlatformDisneyPlus  Platform = "DisneyPlus"
	PlatformITunes      Platform = "iTunes"
	PlatformAppleTVPlus Platform = "AppleTVPlus"
)

// String returns the string representation of Platform
func (p Platform) String() string {
	return string(p)
}

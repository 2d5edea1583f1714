// Package intent turns a recognized Czech transcript into a structured
// command. Classification is deterministic: the transcript is
// normalized, synonyms are collapsed, and an ordered rule table is
// evaluated with earlier rules winning.
package intent

// Kind identifies the command variant.
type Kind int

const (
	Unrecognized Kind = iota
	PlayTrack
	PlayArtistTop
	PlayPlaylist
	SetVolume
	Pause
	Resume
	SkipNext
	DeviceOn
	DeviceOff
	GetTime
	GetWeather
	CreateNote
	ListNotes
)

// String returns the wire/log label for the kind.
func (k Kind) String() string {
	switch k {
	case PlayTrack:
		return "play_track"
	case PlayArtistTop:
		return "play_top_by_artist"
	case PlayPlaylist:
		return "play_playlist"
	case SetVolume:
		return "volume"
	case Pause:
		return "pause"
	case Resume:
		return "resume"
	case SkipNext:
		return "next"
	case DeviceOn:
		return "device_on"
	case DeviceOff:
		return "device_off"
	case GetTime:
		return "get_time"
	case GetWeather:
		return "get_weather"
	case CreateNote:
		return "create_note"
	case ListNotes:
		return "list_notes"
	default:
		return "unrecognized"
	}
}

// IsMedia reports whether the kind acts on the media backend and
// therefore needs the user's authorization token.
func (k Kind) IsMedia() bool {
	switch k {
	case PlayTrack, PlayArtistTop, PlayPlaylist, SetVolume, Pause, Resume, SkipNext:
		return true
	}
	return false
}

// Intent is one classified command. Only the fields relevant to the
// Kind are set; the rest stay zero.
type Intent struct {
	Kind Kind

	Query    string // PlayTrack
	Artist   string // PlayArtistTop
	Playlist string // PlayPlaylist
	Volume   int    // SetVolume, already clamped to 0..100
	NoteText string // CreateNote

	// Device intents. DeviceID may be empty when a room matched but no
	// concrete device resolved; the dispatcher decides what to do then.
	Room     string
	DeviceID string
}

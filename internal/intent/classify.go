package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Classifier evaluates an ordered rule table against the cleaned
// transcript. Precedence is fixed: informational queries first, then
// device switching (before media, so "zapni svetlo" never falls into a
// play pattern), then media commands from most to least specific.
type Classifier struct {
	rooms *Catalogue
	rules []rule
}

type rule func(t string, tokens []string) (Intent, bool)

var (
	timePhrases = []string{
		"kolik je hodin", "kolik je cas", "jakej je cas", "jaky je cas",
		"rekni mi cas",
	}
	weatherPhrases = []string{"bude prset"}

	notePattern = regexp.MustCompile(
		`\b(?:vytvor|zapis|poznamenej|poznamenejte|uloz)\b\s*(?:poznamku|poznamka)?\s*(.+)$`)
	artistPattern = regexp.MustCompile(
		`\b(?:zahraj|pust|hraj|prehraj)\b.*?\b(?:od kapely|od|zpevaka)\s+(.+)$`)
	playlistPattern = regexp.MustCompile(
		`\b(?:pust|zahraj|prehraj|hraj)\b.*?\b(?:playlist|seznam)\s+(.+)$`)
	volumePattern = regexp.MustCompile(`\b(?:hlasitost|volume)\s*(\d{1,3})\b`)
	trackPattern  = regexp.MustCompile(`\b(?:zahraj|pust|prehraj|hraj)\s+(.+)$`)
)

// NewClassifier builds the classifier over the given room catalogue.
// The catalogue may be nil; device intents then fall through to the
// later rules.
func NewClassifier(rooms *Catalogue) *Classifier {
	c := &Classifier{rooms: rooms}
	c.rules = []rule{
		ruleTime,
		ruleWeather,
		ruleCreateNote,
		ruleListNotes,
		c.ruleDevice,
		rulePlayArtist,
		rulePlayPlaylist,
		ruleVolumeNumeric,
		ruleVolumeQualitative,
		rulePause,
		ruleResume,
		ruleNext,
		rulePlayTrack,
	}
	return c
}

// Classify maps one raw transcript to an Intent. Pure with respect to
// the catalogue; always returns a value, Unrecognized when nothing
// matched.
func (c *Classifier) Classify(raw string) Intent {
	t := cleanup(raw)
	if t == "" {
		return Intent{Kind: Unrecognized}
	}
	tokens := strings.Fields(t)
	for _, r := range c.rules {
		if in, ok := r(t, tokens); ok {
			return in
		}
	}
	return Intent{Kind: Unrecognized}
}

func hasToken(tokens []string, want ...string) bool {
	for _, tok := range tokens {
		for _, w := range want {
			if tok == w {
				return true
			}
		}
	}
	return false
}

func hasPhrase(t string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

func ruleTime(t string, tokens []string) (Intent, bool) {
	if hasPhrase(t, timePhrases) || hasToken(tokens, "cas") {
		return Intent{Kind: GetTime}, true
	}
	return Intent{}, false
}

func ruleWeather(t string, tokens []string) (Intent, bool) {
	if hasToken(tokens, "pocasi", "prsi") || hasPhrase(t, weatherPhrases) {
		return Intent{Kind: GetWeather}, true
	}
	return Intent{}, false
}

func ruleCreateNote(t string, _ []string) (Intent, bool) {
	m := notePattern.FindStringSubmatch(t)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return Intent{}, false
	}
	return Intent{Kind: CreateNote, NoteText: strings.TrimSpace(m[1])}, true
}

func ruleListNotes(t string, tokens []string) (Intent, bool) {
	if hasToken(tokens, "ukaz", "vypsat", "vypis", "zobraz", "poznamky") ||
		strings.Contains(t, "co mam v poznamkach") {
		return Intent{Kind: ListNotes}, true
	}
	return Intent{}, false
}

// ruleDevice resolves on/off commands against the room catalogue. A
// light word with no verb defaults to "on" ("svetlo v kuchyni"). When
// no room matches, the rule declines so media rules still get a shot.
func (c *Classifier) ruleDevice(t string, tokens []string) (Intent, bool) {
	var kind Kind
	switch {
	case hasToken(tokens, "vypni"):
		kind = DeviceOff
	case hasToken(tokens, "zapni"):
		kind = DeviceOn
	case MentionsLight(t):
		kind = DeviceOn
	default:
		return Intent{}, false
	}

	if c.rooms == nil {
		return Intent{}, false
	}
	room := c.rooms.MatchRoom(t)
	if room == nil {
		return Intent{}, false
	}

	in := Intent{Kind: kind, Room: room.Name}
	if dev := room.FindLightDevice(t); dev != nil {
		in.DeviceID = dev.ID
	}
	return in, true
}

func rulePlayArtist(t string, _ []string) (Intent, bool) {
	m := artistPattern.FindStringSubmatch(t)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return Intent{}, false
	}
	return Intent{Kind: PlayArtistTop, Artist: strings.TrimSpace(m[1])}, true
}

func rulePlayPlaylist(t string, _ []string) (Intent, bool) {
	m := playlistPattern.FindStringSubmatch(t)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return Intent{}, false
	}
	return Intent{Kind: PlayPlaylist, Playlist: strings.TrimSpace(m[1])}, true
}

func ruleVolumeNumeric(t string, _ []string) (Intent, bool) {
	m := volumePattern.FindStringSubmatch(t)
	if m == nil {
		return Intent{}, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return Intent{}, false
	}
	if v > 100 {
		v = 100
	}
	if v < 0 {
		v = 0
	}
	return Intent{Kind: SetVolume, Volume: v}, true
}

func ruleVolumeQualitative(_ string, tokens []string) (Intent, bool) {
	if hasToken(tokens, "ztis") {
		return Intent{Kind: SetVolume, Volume: 10}, true
	}
	if hasToken(tokens, "zesil") {
		return Intent{Kind: SetVolume, Volume: 90}, true
	}
	return Intent{}, false
}

func rulePause(_ string, tokens []string) (Intent, bool) {
	if hasToken(tokens, "pauza", "zastav") {
		return Intent{Kind: Pause}, true
	}
	return Intent{}, false
}

func ruleResume(_ string, tokens []string) (Intent, bool) {
	if hasToken(tokens, "pokracuj", "obnov") {
		return Intent{Kind: Resume}, true
	}
	return Intent{}, false
}

func ruleNext(_ string, tokens []string) (Intent, bool) {
	if hasToken(tokens, "dalsi", "nasledujici") {
		return Intent{Kind: SkipNext}, true
	}
	return Intent{}, false
}

// rulePlayTrack is the greedy fallback. A remainder that still talks
// about lights is rejected outright so a garbled light command is not
// misrouted to media playback.
func rulePlayTrack(t string, _ []string) (Intent, bool) {
	m := trackPattern.FindStringSubmatch(t)
	if m == nil {
		return Intent{}, false
	}
	q := strings.TrimSpace(m[1])
	if q == "" {
		return Intent{}, false
	}
	if MentionsLight(q) || hasToken(strings.Fields(q), "zapni", "vypni") {
		return Intent{Kind: Unrecognized}, true
	}
	return Intent{Kind: PlayTrack, Query: q}, true
}

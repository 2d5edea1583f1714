package intent

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/antzucaro/matchr"
)

// Device is one switchable appliance in a room.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Room groups devices under a name plus spoken aliases.
type Room struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Devices []Device `json:"devices"`
}

// Catalogue is the known set of rooms, loaded once at startup.
type Catalogue struct {
	Rooms []Room
}

// LoadCatalogue reads the room definitions from a JSON file.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rooms file: %w", err)
	}
	var rooms []Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("parse rooms file %s: %w", path, err)
	}
	return &Catalogue{Rooms: rooms}, nil
}

// minStem is the shortest shared prefix accepted as a room match.
// Czech case endings change the tail of the word ("kuchyn" covers
// "kuchyne" and "kuchyni"), so prefix matching absorbs them, but very
// short stems would match almost anything.
const minStem = 3

// MatchRoom finds the room the text refers to, tolerating grammatical
// endings and minor recognition errors. Returns nil when no room
// matches.
func (c *Catalogue) MatchRoom(text string) *Room {
	tokens := Tokenize(text)
	for i := range c.Rooms {
		room := &c.Rooms[i]
		for _, alias := range append([]string{room.Name}, room.Aliases...) {
			if aliasMatches(tokens, Normalize(alias)) {
				return room
			}
		}
	}
	return nil
}

func aliasMatches(tokens []string, alias string) bool {
	if alias == "" {
		return false
	}
	// Multi-word aliases match as a phrase.
	if strings.Contains(alias, " ") {
		return strings.Contains(" "+strings.Join(tokens, " ")+" ", " "+alias+" ")
	}
	for _, tok := range tokens {
		if tok == alias {
			return true
		}
		if len(tok) >= minStem && len(alias) >= minStem &&
			(strings.HasPrefix(tok, alias) || strings.HasPrefix(alias, tok)) {
			return true
		}
		// Last resort for recognizer typos on longer names.
		if len(alias) >= 4 && matchr.Levenshtein(tok, alias) <= 1 {
			return true
		}
	}
	return false
}

// Device-word stems. Czech declension changes the word ending ("lampa",
// "lampu", "lampicka"), so stems are compared as prefixes.
var (
	lampStems  = []string{"lamp"}
	ledStems   = []string{"led", "pasek"}
	lightStems = []string{"svetl", "light"}
)

func hasStem(tokens []string, stems ...string) bool {
	for _, tok := range tokens {
		for _, stem := range stems {
			if strings.HasPrefix(tok, stem) {
				return true
			}
		}
	}
	return false
}

// MentionsLight reports whether the text names a light-type device.
func MentionsLight(text string) bool {
	return hasStem(Tokenize(text), append(append(lampStems, ledStems...), lightStems...)...)
}

// FindLightDevice resolves which device in the room the command means.
// An explicit type word (lamp, led strip) wins; otherwise the first
// device of type "light" is used. Returns nil when the room has no
// candidate.
func (r *Room) FindLightDevice(text string) *Device {
	if len(r.Devices) == 0 {
		return nil
	}
	tokens := Tokenize(text)
	byName := func(stems []string) *Device {
		for i := range r.Devices {
			if hasStem(Tokenize(r.Devices[i].Name), stems...) {
				return &r.Devices[i]
			}
		}
		return nil
	}
	firstLight := func() *Device {
		for i := range r.Devices {
			if r.Devices[i].Type == "light" {
				return &r.Devices[i]
			}
		}
		return nil
	}

	if hasStem(tokens, lampStems...) {
		if d := byName(lampStems); d != nil {
			return d
		}
		return firstLight()
	}
	if hasStem(tokens, ledStems...) {
		if d := byName(ledStems); d != nil {
			return d
		}
		return firstLight()
	}
	if d := byName(lightStems); d != nil {
		return d
	}
	return firstLight()
}

package intent

import "testing"

func testCatalogue() *Catalogue {
	return &Catalogue{Rooms: []Room{
		{
			Name:    "kuchyně",
			Aliases: []string{"kuchyn"},
			Devices: []Device{
				{ID: "light-kitchen-1", Name: "Světlo kuchyň", Type: "light"},
			},
		},
		{
			Name:    "obývák",
			Aliases: []string{"obyvak", "pokoj"},
			Devices: []Device{
				{ID: "lamp-living-1", Name: "Lampička", Type: "light"},
				{ID: "led-living-1", Name: "LED pásek", Type: "light"},
			},
		},
		{
			Name:    "ložnice",
			Aliases: []string{"loznice"},
		},
	}}
}

func TestClassify_DeviceCommands(t *testing.T) {
	c := NewClassifier(testCatalogue())

	in := c.Classify("zapni světlo v kuchyni")
	if in.Kind != DeviceOn || in.Room != "kuchyně" || in.DeviceID != "light-kitchen-1" {
		t.Errorf("got %+v", in)
	}

	in = c.Classify("zhasni v kuchyni")
	if in.Kind != DeviceOff || in.Room != "kuchyně" {
		t.Errorf("got %+v", in)
	}

	// Light word with no verb defaults to on.
	in = c.Classify("světlo v kuchyni")
	if in.Kind != DeviceOn || in.Room != "kuchyně" {
		t.Errorf("got %+v", in)
	}

	// Synonym verbs collapse onto the canonical one.
	in = c.Classify("rozsviť v kuchyni")
	if in.Kind != DeviceOn || in.Room != "kuchyně" {
		t.Errorf("got %+v", in)
	}

	// Room matched, no devices: room-scoped intent with empty device.
	in = c.Classify("zapni světlo v ložnici")
	if in.Kind != DeviceOn || in.Room != "ložnice" || in.DeviceID != "" {
		t.Errorf("got %+v", in)
	}
}

func TestClassify_DeviceTypeSelection(t *testing.T) {
	c := NewClassifier(testCatalogue())

	in := c.Classify("zapni lampu v pokoji")
	if in.Kind != DeviceOn || in.DeviceID != "lamp-living-1" {
		t.Errorf("got %+v", in)
	}

	in = c.Classify("zapni led pásek v obýváku")
	if in.Kind != DeviceOn || in.DeviceID != "led-living-1" {
		t.Errorf("got %+v", in)
	}
}

func TestClassify_MediaCommands(t *testing.T) {
	c := NewClassifier(testCatalogue())

	in := c.Classify("zahraj něco od Queen")
	if in.Kind != PlayArtistTop || in.Artist != "queen" {
		t.Errorf("got %+v, want artist intent", in)
	}

	in = c.Classify("pusť playlist chill večer")
	if in.Kind != PlayPlaylist || in.Playlist != "chill vecer" {
		t.Errorf("got %+v", in)
	}

	in = c.Classify("zahraj Bohemian Rhapsody")
	if in.Kind != PlayTrack || in.Query != "bohemian rhapsody" {
		t.Errorf("got %+v", in)
	}
}

func TestClassify_Volume(t *testing.T) {
	c := NewClassifier(nil)

	in := c.Classify("hlasitost 30")
	if in.Kind != SetVolume || in.Volume != 30 {
		t.Errorf("got %+v", in)
	}

	in = c.Classify("hlasitost 150")
	if in.Kind != SetVolume || in.Volume != 100 {
		t.Errorf("volume not clamped: %+v", in)
	}

	in = c.Classify("ztiš to")
	if in.Kind != SetVolume || in.Volume != 10 {
		t.Errorf("got %+v", in)
	}

	in = c.Classify("přidej hlasitost")
	if in.Kind != SetVolume || in.Volume != 90 {
		t.Errorf("got %+v", in)
	}
}

func TestClassify_TransportControls(t *testing.T) {
	c := NewClassifier(nil)

	cases := map[string]Kind{
		"pauza":              Pause,
		"zastav to":          Pause,
		"pokračuj":           Resume,
		"obnov přehrávání":   Resume,
		"další skladba":      SkipNext,
		"následující prosím": SkipNext,
	}
	for text, want := range cases {
		if in := c.Classify(text); in.Kind != want {
			t.Errorf("Classify(%q) = %v, want %v", text, in.Kind, want)
		}
	}
}

func TestClassify_Informational(t *testing.T) {
	c := NewClassifier(nil)

	if in := c.Classify("kolik je hodin"); in.Kind != GetTime {
		t.Errorf("got %+v", in)
	}
	if in := c.Classify("jaké je počasí"); in.Kind != GetWeather {
		t.Errorf("got %+v", in)
	}
	if in := c.Classify("bude pršet"); in.Kind != GetWeather {
		t.Errorf("got %+v", in)
	}
}

func TestClassify_Notes(t *testing.T) {
	c := NewClassifier(nil)

	in := c.Classify("zapiš poznámku koupit mléko")
	if in.Kind != CreateNote || in.NoteText != "koupit mleko" {
		t.Errorf("got %+v", in)
	}

	in = c.Classify("poznamenej zavolat mámě")
	if in.Kind != CreateNote || in.NoteText != "zavolat mame" {
		t.Errorf("got %+v", in)
	}

	if in := c.Classify("ukaž poznámky"); in.Kind != ListNotes {
		t.Errorf("got %+v", in)
	}
}

func TestClassify_PrecedenceDeviceBeforeMedia(t *testing.T) {
	c := NewClassifier(testCatalogue())

	// A play verb followed by light words must not become a media
	// intent.
	in := c.Classify("pusť světlo v kuchyni")
	if in.Kind != DeviceOn || in.Room != "kuchyně" {
		t.Errorf("light command routed to media: %+v", in)
	}

	// With no matching room the guard still blocks the track fallback.
	in = c.Classify("zahraj světlo")
	if in.Kind != Unrecognized {
		t.Errorf("got %+v, want Unrecognized", in)
	}
}

func TestClassify_Unrecognized(t *testing.T) {
	c := NewClassifier(testCatalogue())

	for _, text := range []string{"", "   ", "blablabla", "vypni hudbu prosím"} {
		if in := c.Classify(text); in.Kind != Unrecognized {
			t.Errorf("Classify(%q) = %+v, want Unrecognized", text, in)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("Pusť Světlo"); got != "pust svetlo" {
		t.Errorf("Normalize = %q", got)
	}
	if got := cleanup("prosím tě rozsviť hele"); got != "te zapni" {
		t.Errorf("cleanup = %q", got)
	}
}

func TestKind_IsMedia(t *testing.T) {
	for _, k := range []Kind{PlayTrack, PlayArtistTop, PlayPlaylist, SetVolume, Pause, Resume, SkipNext} {
		if !k.IsMedia() {
			t.Errorf("%v must require media auth", k)
		}
	}
	for _, k := range []Kind{DeviceOn, GetTime, CreateNote, Unrecognized} {
		if k.IsMedia() {
			t.Errorf("%v must not require media auth", k)
		}
	}
}

// Package dispatch maps a classified intent to exactly one downstream
// action and one spoken response. Every path returns a message, failures
// included, so the voice loop always has something to say.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rb4home/homevoice/internal/intent"
	"github.com/rb4home/homevoice/internal/media"
	"github.com/rb4home/homevoice/internal/notes"
	"github.com/rb4home/homevoice/internal/observability"
	"github.com/rb4home/homevoice/internal/weather"
)

// Result is the outcome of one dispatch: a single user-facing message
// plus a success flag.
type Result struct {
	Message string
	OK      bool
}

// MediaBackend is the playback collaborator. Calls act on the user's
// active device using the per-request token.
type MediaBackend interface {
	PlayTrack(ctx context.Context, token, query string) (media.TrackInfo, error)
	PlayArtistTop(ctx context.Context, token, artist string) (media.TrackInfo, error)
	PlayPlaylist(ctx context.Context, token, name string) (string, error)
	SetVolume(ctx context.Context, token string, value int) error
	Pause(ctx context.Context, token string) error
	Resume(ctx context.Context, token string) error
	Next(ctx context.Context, token string) error
}

// DeviceRegistry switches devices on the home bus.
type DeviceRegistry interface {
	TurnOn(ctx context.Context, deviceID string) error
	TurnOff(ctx context.Context, deviceID string) error
}

// NoteStore persists and lists notes.
type NoteStore interface {
	Append(text string) error
	ListRecent(n int) ([]notes.Note, error)
}

// WeatherProvider reports current conditions.
type WeatherProvider interface {
	Current(ctx context.Context, q weather.Query) (weather.Observation, error)
}

// Dispatcher routes intents to collaborators.
type Dispatcher struct {
	media    MediaBackend
	devices  DeviceRegistry
	notes    NoteStore
	weather  WeatherProvider
	homeCity string
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a dispatcher. Collaborators may be nil; the matching
// intents then fail with their regular failure message.
func New(
	mediaBackend MediaBackend,
	registry DeviceRegistry,
	noteStore NoteStore,
	weatherProvider WeatherProvider,
	homeCity string,
	log zerolog.Logger,
) *Dispatcher {
	if homeCity == "" {
		homeCity = "Prague"
	}
	return &Dispatcher{
		media:    mediaBackend,
		devices:  registry,
		notes:    noteStore,
		weather:  weatherProvider,
		homeCity: homeCity,
		log:      log.With().Str("component", "dispatch").Logger(),
		now:      time.Now,
	}
}

// Dispatch executes one intent. token is the user's media authorization;
// media intents short-circuit to a failure when it is empty. Weather
// uses the configured home city.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, token string) Result {
	return d.DispatchLocated(ctx, in, token, nil)
}

// DispatchLocated is Dispatch with an explicit weather location, used
// when the caller knows the client's coordinates. loc may be nil.
func (d *Dispatcher) DispatchLocated(ctx context.Context, in intent.Intent, token string, loc *weather.Query) Result {
	start := d.now()
	res := d.dispatch(ctx, in, token, loc)
	observability.ObserveDispatchLatency(d.now().Sub(start).Seconds())

	status := "ok"
	if !res.OK {
		status = "failed"
		if in.Kind.IsMedia() && token == "" {
			status = "unauthorized"
		}
	}
	observability.RecordDispatch(in.Kind.String(), status)
	d.log.Info().Str("intent", in.Kind.String()).Bool("ok", res.OK).
		Str("message", res.Message).Msg("intent dispatched")
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, in intent.Intent, token string, loc *weather.Query) Result {
	if in.Kind.IsMedia() {
		if token == "" {
			return Result{Message: "Spotify není přihlášeno."}
		}
		if d.media == nil {
			return Result{Message: "Přehrávání není k dispozici."}
		}
	}

	switch in.Kind {
	case intent.PlayTrack:
		return d.playTrack(ctx, in.Query, token)
	case intent.PlayArtistTop:
		return d.playArtistTop(ctx, in.Artist, token)
	case intent.PlayPlaylist:
		return d.playPlaylist(ctx, in.Playlist, token)
	case intent.SetVolume:
		return d.setVolume(ctx, in.Volume, token)
	case intent.Pause:
		return d.simpleMedia(d.media.Pause, ctx, token,
			"Přehrávání pozastaveno.", "Chyba při pozastavení.")
	case intent.Resume:
		return d.simpleMedia(d.media.Resume, ctx, token,
			"Pokračuji v přehrávání.", "Chyba při obnovení.")
	case intent.SkipNext:
		return d.simpleMedia(d.media.Next, ctx, token,
			"Přeskočeno na další skladbu.", "Chyba při přeskakování.")
	case intent.DeviceOn:
		return d.switchDevice(ctx, in, true)
	case intent.DeviceOff:
		return d.switchDevice(ctx, in, false)
	case intent.GetTime:
		return d.tellTime()
	case intent.GetWeather:
		return d.tellWeather(ctx, loc)
	case intent.CreateNote:
		return d.createNote(in.NoteText)
	case intent.ListNotes:
		return d.listNotes()
	default:
		return Result{Message: "Příkaz nerozpoznán nebo není podporován."}
	}
}

func (d *Dispatcher) playTrack(ctx context.Context, query, token string) Result {
	info, err := d.media.PlayTrack(ctx, token, query)
	switch {
	case errors.Is(err, media.ErrNotFound):
		return Result{Message: fmt.Sprintf("Skladba \"%s\" nebyla nalezena.", query)}
	case errors.Is(err, media.ErrNoActiveDevice):
		return Result{Message: "Chybí aktivní zařízení."}
	case err != nil:
		d.log.Error().Err(err).Msg("play track failed")
		return Result{Message: "Chyba při přehrávání."}
	}
	return Result{
		Message: fmt.Sprintf("Přehrávám: %s od %s", info.Name, info.Artists),
		OK:      true,
	}
}

func (d *Dispatcher) playArtistTop(ctx context.Context, artist, token string) Result {
	info, err := d.media.PlayArtistTop(ctx, token, artist)
	switch {
	case errors.Is(err, media.ErrNotFound):
		return Result{Message: fmt.Sprintf("Umělec \"%s\" nebyl nalezen.", artist)}
	case errors.Is(err, media.ErrNoActiveDevice):
		return Result{Message: "Chybí aktivní zařízení."}
	case err != nil:
		d.log.Error().Err(err).Msg("play artist top failed")
		return Result{Message: "Chyba při přehrávání."}
	}
	return Result{
		Message: fmt.Sprintf("Přehrávám: %s od %s", info.Name, info.Artists),
		OK:      true,
	}
}

func (d *Dispatcher) playPlaylist(ctx context.Context, name, token string) Result {
	found, err := d.media.PlayPlaylist(ctx, token, name)
	switch {
	case errors.Is(err, media.ErrNotFound):
		return Result{Message: fmt.Sprintf("Playlist \"%s\" nebyl nalezen.", name)}
	case errors.Is(err, media.ErrNoActiveDevice):
		return Result{Message: "Chybí aktivní zařízení."}
	case err != nil:
		d.log.Error().Err(err).Msg("play playlist failed")
		return Result{Message: "Chyba při přehrávání playlistu."}
	}
	return Result{Message: "Přehrávám playlist: " + found, OK: true}
}

func (d *Dispatcher) setVolume(ctx context.Context, value int, token string) Result {
	if err := d.media.SetVolume(ctx, token, value); err != nil {
		if errors.Is(err, media.ErrNoActiveDevice) {
			return Result{Message: "Chybí aktivní zařízení."}
		}
		d.log.Error().Err(err).Msg("set volume failed")
		return Result{Message: "Chyba při nastavování hlasitosti."}
	}
	return Result{Message: fmt.Sprintf("Hlasitost nastavena na %d procent.", value), OK: true}
}

func (d *Dispatcher) simpleMedia(
	call func(context.Context, string) error,
	ctx context.Context,
	token, okMsg, failMsg string,
) Result {
	if err := call(ctx, token); err != nil {
		d.log.Error().Err(err).Msg("media call failed")
		return Result{Message: failMsg}
	}
	return Result{Message: okMsg, OK: true}
}

func (d *Dispatcher) switchDevice(ctx context.Context, in intent.Intent, on bool) Result {
	if in.DeviceID == "" {
		// Room matched but no device resolved; nothing to switch yet.
		return Result{Message: fmt.Sprintf("V místnosti %s jsem nenašel žádné světlo.", in.Room)}
	}
	if d.devices == nil {
		return Result{Message: "Ovládání zařízení není k dispozici."}
	}

	var err error
	if on {
		err = d.devices.TurnOn(ctx, in.DeviceID)
	} else {
		err = d.devices.TurnOff(ctx, in.DeviceID)
	}
	if err != nil {
		d.log.Error().Err(err).Str("device_id", in.DeviceID).Msg("device switch failed")
		if on {
			return Result{Message: "Nepodařilo se zapnout zařízení."}
		}
		return Result{Message: "Nepodařilo se vypnout zařízení."}
	}

	if on {
		return Result{Message: fmt.Sprintf("Zařízení %s zapnuto.", in.DeviceID), OK: true}
	}
	return Result{Message: fmt.Sprintf("Zařízení %s vypnuto.", in.DeviceID), OK: true}
}

func (d *Dispatcher) tellTime() Result {
	now := d.now()
	h, m := now.Hour(), now.Minute()
	if m == 0 {
		return Result{Message: fmt.Sprintf("Je %d hodin.", h), OK: true}
	}
	return Result{Message: fmt.Sprintf("Je %d hodin %d minut.", h, m), OK: true}
}

func (d *Dispatcher) tellWeather(ctx context.Context, loc *weather.Query) Result {
	if d.weather == nil {
		return Result{Message: "Počasí se nepodařilo načíst."}
	}
	q := weather.Query{City: d.homeCity}
	if loc != nil {
		q = *loc
	}
	obs, err := d.weather.Current(ctx, q)
	if err != nil {
		d.log.Error().Err(err).Msg("weather lookup failed")
		return Result{Message: "Počasí se nepodařilo načíst."}
	}

	msg := fmt.Sprintf("Aktuálně v %s je %d stupňů", obs.City, int(math.Round(obs.TempC)))
	if obs.Text != "" {
		msg += " a " + obs.Text
	}
	return Result{Message: msg + ".", OK: true}
}

func (d *Dispatcher) createNote(text string) Result {
	if d.notes == nil {
		return Result{Message: "Poznámku se nepodařilo uložit."}
	}
	if err := d.notes.Append(text); err != nil {
		d.log.Error().Err(err).Msg("note append failed")
		return Result{Message: "Poznámku se nepodařilo uložit."}
	}
	return Result{Message: "Poznámka uložena.", OK: true}
}

func (d *Dispatcher) listNotes() Result {
	if d.notes == nil {
		return Result{Message: "Poznámky se nepodařilo načíst."}
	}
	recent, err := d.notes.ListRecent(3)
	if err != nil {
		d.log.Error().Err(err).Msg("note list failed")
		return Result{Message: "Poznámky se nepodařilo načíst."}
	}
	if len(recent) == 0 {
		return Result{Message: "Nemáš žádné poznámky.", OK: true}
	}

	parts := make([]string, len(recent))
	for i, n := range recent {
		parts[i] = fmt.Sprintf("%d. %s", i+1, n.Text)
	}
	return Result{Message: "Tvoje poslední poznámky: " + strings.Join(parts, " "), OK: true}
}

package speech

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var ErrNoEngine = errors.New("no speech engine available")

type Voice struct {
	ID       string
	Name     string
	Language string
}

// Engine is an external text-to-speech capability. Say blocks until the
// utterance has been spoken.
type Engine interface {
	Name() string
	Voices(ctx context.Context) ([]Voice, error)
	Say(ctx context.Context, voice, text string) error
}

// SelectVoice returns the first voice whose language matches tag, falling
// back to voices whose id or name mentions the language by its English name.
func SelectVoice(voices []Voice, tag language.Tag) (Voice, bool) {
	want, _ := tag.Base()

	for _, v := range voices {
		if v.Language == "" {
			continue
		}
		base, conf := language.Make(strings.ReplaceAll(v.Language, "_", "-")).Base()
		if conf != language.No && base == want {
			return v, true
		}
	}

	langName := strings.ToLower(display.English.Languages().Name(tag))
	if langName == "" {
		return Voice{}, false
	}
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.ID), langName) || strings.Contains(strings.ToLower(v.Name), langName) {
			return v, true
		}
	}

	return Voice{}, false
}

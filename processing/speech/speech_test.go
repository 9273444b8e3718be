package speech

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"imagedetect/internal/models"
	"imagedetect/internal/phrases"
)

type fakeEngine struct {
	voices    []Voice
	voicesErr error

	gate chan struct{}

	mu      sync.Mutex
	spoken  []string
	voiceOf []string

	active  atomic.Int32
	overlap atomic.Bool
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Voices(context.Context) ([]Voice, error) { return f.voices, f.voicesErr }

func (f *fakeEngine) Say(ctx context.Context, voice, text string) error {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.active.Add(-1)

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.voiceOf = append(f.voiceOf, voice)
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) said() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

var catDog = models.Tally{
	Counts: []models.ClassCount{{Class: "cat", Count: 2}, {Class: "dog", Count: 1}},
	Total:  3,
}

func TestNarratorSpeaksSentence(t *testing.T) {
	eng := &fakeEngine{}
	n := NewNarrator(eng, phrases.MustNew("en"), 4, nil)

	text, err := n.Speak(catDog)
	require.NoError(t, err)
	assert.Equal(t, "Detected 3 objects. Including: 2 cat, 1 dog", text)

	assert.Eventually(t, func() bool { return len(eng.said()) == 1 }, time.Second, 10*time.Millisecond)
	n.Close()
	assert.Equal(t, []string{text}, eng.said())
}

func TestNarratorEmptyTally(t *testing.T) {
	n := NewNarrator(&fakeEngine{}, phrases.MustNew("en"), 1, nil)
	defer n.Close()

	text, err := n.Speak(models.Tally{})
	require.NoError(t, err)
	assert.Equal(t, "Detected 0 objects. Including: ", text)
}

func TestNarratorSerializesRequests(t *testing.T) {
	eng := &fakeEngine{gate: make(chan struct{})}
	n := NewNarrator(eng, phrases.MustNew("en"), 4, nil)

	for i := 0; i < 3; i++ {
		_, err := n.Speak(catDog)
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		eng.gate <- struct{}{}
	}

	assert.Eventually(t, func() bool { return len(eng.said()) == 3 }, time.Second, 10*time.Millisecond)
	assert.False(t, eng.overlap.Load(), "narrations overlapped")
	n.Close()
}

func TestNarratorQueueFull(t *testing.T) {
	eng := &fakeEngine{gate: make(chan struct{})}
	n := NewNarrator(eng, phrases.MustNew("en"), 1, nil)
	defer n.Close()

	_, err := n.Speak(catDog)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return eng.active.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err = n.Speak(catDog)
	require.NoError(t, err, "one request fits in the queue")

	_, err = n.Speak(catDog)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestNarratorClosed(t *testing.T) {
	n := NewNarrator(&fakeEngine{}, phrases.MustNew("en"), 1, nil)
	n.Close()
	n.Close()

	_, err := n.Speak(catDog)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNarratorPickVoice(t *testing.T) {
	eng := &fakeEngine{voices: []Voice{
		{ID: "en-us", Language: "en-us"},
		{ID: "vi", Language: "vi", Name: "Vietnamese_Northern"},
	}}
	n := NewNarrator(eng, phrases.MustNew("vi"), 1, nil)

	v, ok := n.PickVoice(context.Background())
	require.True(t, ok)
	assert.Equal(t, "vi", v.ID)

	_, err := n.Speak(catDog)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(eng.said()) == 1 }, time.Second, 10*time.Millisecond)
	n.Close()

	eng.mu.Lock()
	defer eng.mu.Unlock()
	assert.Equal(t, []string{"vi"}, eng.voiceOf)
}

func TestNarratorPickVoiceFallsBack(t *testing.T) {
	n := NewNarrator(&fakeEngine{voicesErr: errors.New("no tool")}, phrases.MustNew("vi"), 1, nil)
	defer n.Close()

	_, ok := n.PickVoice(context.Background())
	assert.False(t, ok)
}

func TestSelectVoice(t *testing.T) {
	voices := []Voice{
		{ID: "Alex", Name: "Alex", Language: "en_US"},
		{ID: "Linh", Name: "Linh", Language: "vi_VN"},
	}

	v, ok := SelectVoice(voices, language.Vietnamese)
	require.True(t, ok)
	assert.Equal(t, "Linh", v.ID)

	v, ok = SelectVoice([]Voice{{ID: "HKEY\\Voices\\VIETNAMESE_AN"}}, language.Vietnamese)
	require.True(t, ok, "matches by language name in id")
	assert.Contains(t, v.ID, "VIETNAMESE")

	_, ok = SelectVoice(voices, language.Japanese)
	assert.False(t, ok)
}

package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const espeakVoices = `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 2  en-us           --/M      English_(America)  gmw/en-US            (en 3)
 5  vi              --/M      Vietnamese_Northern sit/vi
`

const sayVoices = `Alex                en_US    # Most people recognize me by my voice.
Bad News            en_US    # The light you see at the end of the tunnel is the headlamp of a fast approaching train.
Linh                vi_VN    # Xin chào, tên tôi là Linh.
`

func TestParseEspeakVoices(t *testing.T) {
	voices := parseEspeakVoices([]byte(espeakVoices))

	require.Len(t, voices, 3)
	assert.Equal(t, Voice{ID: "vi", Name: "Vietnamese_Northern", Language: "vi"}, voices[2])
	assert.Equal(t, "en-us", voices[1].Language)
}

func TestParseSayVoices(t *testing.T) {
	voices := parseSayVoices([]byte(sayVoices))

	require.Len(t, voices, 3)
	assert.Equal(t, "Bad News", voices[1].Name)
	assert.Equal(t, Voice{ID: "Linh", Name: "Linh", Language: "vi_VN"}, voices[2])
}

func TestParsePowerShellVoices(t *testing.T) {
	voices := parsePowerShellVoices([]byte("Microsoft David Desktop|en-US\r\nMicrosoft An|vi-VN\r\n\r\n"))

	require.Len(t, voices, 2)
	assert.Equal(t, Voice{ID: "Microsoft An", Name: "Microsoft An", Language: "vi-VN"}, voices[1])
}

type call struct {
	stdin string
	name  string
	args  []string
}

func recordingEngine(kind commandKind, rate int, out []byte, err error) (*CommandEngine, *[]call) {
	var calls []call
	e := &CommandEngine{
		kind: kind,
		bin:  "/usr/bin/" + string(kind),
		rate: rate,
		run: func(_ context.Context, stdin, name string, args ...string) ([]byte, error) {
			calls = append(calls, call{stdin: stdin, name: name, args: args})
			return out, err
		},
	}
	return e, &calls
}

func TestCommandEngineEspeak(t *testing.T) {
	e, calls := recordingEngine(kindEspeak, 150, []byte(espeakVoices), nil)

	voices, err := e.Voices(context.Background())
	require.NoError(t, err)
	assert.Len(t, voices, 3)

	require.NoError(t, e.Say(context.Background(), "vi", "Detected 1 objects. Including: 1 cat"))
	require.Len(t, *calls, 2)
	assert.Equal(t, []string{"--voices"}, (*calls)[0].args)
	assert.Equal(t, []string{"-v", "vi", "-s", "150", "Detected 1 objects. Including: 1 cat"}, (*calls)[1].args)
}

func TestCommandEngineSay(t *testing.T) {
	e, calls := recordingEngine(kindSay, 0, []byte(sayVoices), nil)

	require.NoError(t, e.Say(context.Background(), "", "hello"))
	assert.Equal(t, []string{"hello"}, (*calls)[0].args)
}

func TestCommandEnginePowerShellUsesStdin(t *testing.T) {
	e, calls := recordingEngine(kindPowerShell, 0, nil, nil)

	require.NoError(t, e.Say(context.Background(), "O'Brien", "xin chào"))
	c := (*calls)[0]
	assert.Equal(t, "xin chào", c.stdin)
	assert.Contains(t, c.args[len(c.args)-1], "SelectVoice('O''Brien')")
}

func TestCommandEngineSayError(t *testing.T) {
	e, _ := recordingEngine(kindEspeak, 0, nil, errors.New("exit status 1"))

	err := e.Say(context.Background(), "", "hi")
	assert.ErrorContains(t, err, "speak with espeak")

	_, err = e.Voices(context.Background())
	assert.Error(t, err)
}

func TestNewCommandEngineNone(t *testing.T) {
	_, err := NewCommandEngine("none", 0)
	assert.ErrorIs(t, err, ErrNoEngine)

	_, err = NewCommandEngine("definitely-not-a-speech-tool", 0)
	assert.ErrorIs(t, err, ErrNoEngine)
}

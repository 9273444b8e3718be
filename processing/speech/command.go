package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

type commandKind string

const (
	kindEspeak     commandKind = "espeak"
	kindSay        commandKind = "say"
	kindPowerShell commandKind = "powershell"
)

type runFunc func(ctx context.Context, stdin string, name string, args ...string) ([]byte, error)

// CommandEngine drives a platform speech tool as a child process.
type CommandEngine struct {
	kind commandKind
	bin  string
	rate int

	run runFunc
}

// NewCommandEngine resolves engine ("auto", "espeak-ng", "espeak", "say",
// "powershell") to an installed binary.
func NewCommandEngine(engine string, rate int) (*CommandEngine, error) {
	var candidates []string

	switch engine {
	case "", "auto":
		switch runtime.GOOS {
		case "darwin":
			candidates = []string{"say"}
		case "windows":
			candidates = []string{"powershell"}
		default:
			candidates = []string{"espeak-ng", "espeak"}
		}
	case "none":
		return nil, ErrNoEngine
	default:
		candidates = []string{engine}
	}

	for _, c := range candidates {
		bin, err := exec.LookPath(c)
		if err != nil {
			continue
		}
		return &CommandEngine{kind: kindOf(c), bin: bin, rate: rate, run: runCommand}, nil
	}

	return nil, fmt.Errorf("%w: tried %s", ErrNoEngine, strings.Join(candidates, ", "))
}

func kindOf(name string) commandKind {
	switch {
	case strings.HasPrefix(name, "espeak"):
		return kindEspeak
	case name == "say":
		return kindSay
	default:
		return kindPowerShell
	}
}

func runCommand(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s: %w. Details: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (e *CommandEngine) Name() string {
	return string(e.kind)
}

const psPrelude = "Add-Type -AssemblyName System.Speech; $s = New-Object System.Speech.Synthesis.SpeechSynthesizer; "

func (e *CommandEngine) Voices(ctx context.Context) ([]Voice, error) {
	switch e.kind {
	case kindEspeak:
		out, err := e.run(ctx, "", e.bin, "--voices")
		if err != nil {
			return nil, err
		}
		return parseEspeakVoices(out), nil
	case kindSay:
		out, err := e.run(ctx, "", e.bin, "-v", "?")
		if err != nil {
			return nil, err
		}
		return parseSayVoices(out), nil
	default:
		script := psPrelude + "$s.GetInstalledVoices() | ForEach-Object { $_.VoiceInfo.Name + '|' + $_.VoiceInfo.Culture.Name }"
		out, err := e.run(ctx, "", e.bin, "-NoProfile", "-Command", script)
		if err != nil {
			return nil, err
		}
		return parsePowerShellVoices(out), nil
	}
}

func (e *CommandEngine) Say(ctx context.Context, voice, text string) error {
	var err error

	switch e.kind {
	case kindEspeak:
		args := []string{}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		if e.rate > 0 {
			args = append(args, "-s", strconv.Itoa(e.rate))
		}
		_, err = e.run(ctx, "", e.bin, append(args, text)...)
	case kindSay:
		args := []string{}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		if e.rate > 0 {
			args = append(args, "-r", strconv.Itoa(e.rate))
		}
		_, err = e.run(ctx, "", e.bin, append(args, text)...)
	default:
		script := psPrelude
		if voice != "" {
			script += "$s.SelectVoice('" + strings.ReplaceAll(voice, "'", "''") + "'); "
		}
		script += "$s.Speak([Console]::In.ReadToEnd())"
		_, err = e.run(ctx, text, e.bin, "-NoProfile", "-Command", script)
	}

	if err != nil {
		return fmt.Errorf("speak with %s: %w", e.kind, err)
	}
	return nil
}

// parseEspeakVoices reads the table printed by `espeak-ng --voices`.
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, Voice{
			ID:       fields[1],
			Language: fields[1],
			Name:     fields[3],
		})
	}

	return voices
}

var sayVoiceRe = regexp.MustCompile(`(?m)^(.+?)[ \t]+([a-z]{2,3}[_-][A-Za-z0-9]+)[ \t]+#`)

// parseSayVoices reads `say -v ?` lines such as "Linh   vi_VN   # Xin chào".
func parseSayVoices(out []byte) []Voice {
	var voices []Voice

	for _, m := range sayVoiceRe.FindAllStringSubmatch(string(out), -1) {
		name := strings.TrimSpace(m[1])
		voices = append(voices, Voice{ID: name, Name: name, Language: m[2]})
	}

	return voices
}

func parsePowerShellVoices(out []byte) []Voice {
	var voices []Voice

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		name, culture, ok := strings.Cut(strings.TrimSpace(sc.Text()), "|")
		if !ok || name == "" {
			continue
		}
		voices = append(voices, Voice{ID: name, Name: name, Language: culture})
	}

	return voices
}

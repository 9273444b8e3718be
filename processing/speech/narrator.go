package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"imagedetect/internal/models"
	"imagedetect/internal/phrases"
)

var (
	ErrQueueFull = errors.New("narration queue is full")
	ErrClosed    = errors.New("narrator is closed")
)

// Narrator speaks detection summaries one at a time on a background worker.
// Requests never overlap; an utterance in progress always runs to completion.
type Narrator struct {
	engine Engine
	book   *phrases.Book
	log    *slog.Logger

	voice string

	mu     sync.RWMutex
	closed bool
	queue  chan string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewNarrator(engine Engine, book *phrases.Book, queueSize int, log *slog.Logger) *Narrator {
	if queueSize <= 0 {
		queueSize = 1
	}
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Narrator{
		engine: engine,
		book:   book,
		log:    log,
		queue:  make(chan string, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	n.wg.Add(1)
	go n.run()

	return n
}

// PickVoice chooses an installed voice for the phrase book language. The
// engine default is kept when none matches.
func (n *Narrator) PickVoice(ctx context.Context) (Voice, bool) {
	voices, err := n.engine.Voices(ctx)
	if err != nil {
		n.log.Warn("listing voices failed", "engine", n.engine.Name(), "err", err)
		return Voice{}, false
	}

	v, ok := SelectVoice(voices, n.book.Tag())
	if !ok {
		n.log.Info("no voice for language, using engine default", "language", n.book.Tag().String())
		return Voice{}, false
	}

	n.mu.Lock()
	n.voice = v.ID
	n.mu.Unlock()

	n.log.Info("voice selected", "engine", n.engine.Name(), "voice", v.ID, "language", v.Language)
	return v, true
}

// Speak queues the narration for t and returns the sentence that will be spoken.
func (n *Narrator) Speak(t models.Tally) (string, error) {
	text := n.book.Narration(t)

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return text, ErrClosed
	}

	select {
	case n.queue <- text:
		return text, nil
	default:
		n.log.Warn("narration dropped", "err", ErrQueueFull)
		return text, ErrQueueFull
	}
}

func (n *Narrator) run() {
	defer n.wg.Done()

	for text := range n.queue {
		n.mu.RLock()
		voice := n.voice
		n.mu.RUnlock()

		if err := n.engine.Say(n.ctx, voice, text); err != nil {
			if n.ctx.Err() != nil {
				return
			}
			n.log.Error("narration failed", "engine", n.engine.Name(), "err", err)
		}
	}
}

// Close stops accepting requests, interrupts the current utterance and waits
// for the worker to exit.
func (n *Narrator) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	n.cancel()
	n.wg.Wait()
}

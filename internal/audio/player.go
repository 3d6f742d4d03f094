package audio

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	CategoryMove    = "moveSound"
	CategoryCapture = "captureSound"
)

var ErrNoSounds = errors.New("no sounds registered for category")

// Cue asks the audio context to play element Index of Category.
type Cue struct {
	Category string `json:"category"`
	Index    int    `json:"index"`
	URL      string `json:"url"`
}

// Sink is the audio context that actually plays cues.
type Sink interface {
	Play(cue Cue) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(cue Cue) error

func (f SinkFunc) Play(cue Cue) error { return f(cue) }

// Player owns one audio context and the named sound channels wired into it.
// Both are created on first use, exactly once.
type Player struct {
	manifest *Manifest
	newSink  func() (Sink, error)
	logger   *zap.Logger

	once     sync.Once
	sink     Sink
	channels map[string][]string
	initErr  error

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Player)

func WithLogger(l *zap.Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRand fixes the random source, mainly for tests.
func WithRand(r *rand.Rand) Option {
	return func(p *Player) { p.rng = r }
}

func NewPlayer(manifest *Manifest, newSink func() (Sink, error), opts ...Option) *Player {
	seed := uint64(time.Now().UnixNano())
	p := &Player{
		manifest: manifest,
		newSink:  newSink,
		logger:   zap.NewNop(),
		rng:      rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Player) setup() error {
	p.once.Do(func() {
		if p.newSink == nil {
			p.initErr = errors.New("audio sink factory not configured")
			return
		}
		sink, err := p.newSink()
		if err != nil {
			p.initErr = fmt.Errorf("open audio context: %w", err)
			return
		}
		p.sink = sink
		p.channels = make(map[string][]string)
		if p.manifest != nil {
			for _, c := range p.manifest.Categories() {
				p.channels[c] = p.manifest.Assets(c)
			}
		}
		p.logger.Debug("audio_context_ready", zap.Int("channels", len(p.channels)))
	})
	return p.initErr
}

// Channels returns the category names known to the player.
func (p *Player) Channels() ([]string, error) {
	if err := p.setup(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(p.channels))
	for c := range p.channels {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// PlayRandomSound picks one element of category uniformly at random and plays it.
func (p *Player) PlayRandomSound(category string) (Cue, error) {
	if err := p.setup(); err != nil {
		return Cue{}, err
	}
	elements := p.channels[category]
	if len(elements) == 0 {
		return Cue{}, fmt.Errorf("%w: %s", ErrNoSounds, category)
	}

	p.rngMu.Lock()
	idx := p.rng.IntN(len(elements))
	p.rngMu.Unlock()

	cue := Cue{Category: category, Index: idx, URL: elements[idx]}
	p.logger.Debug("play_sound", zap.String("category", category), zap.Int("index", idx))
	if err := p.sink.Play(cue); err != nil {
		return cue, fmt.Errorf("play %s: %w", category, err)
	}
	return cue, nil
}

package player

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// BeepTransport plays catalog audio through the local speaker. Tracks are
// fetched fully into memory so the decoder can seek.
type BeepTransport struct {
	mu sync.Mutex

	baseURL string
	client  *http.Client

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl

	onReady func()
	onEnded func()
}

func NewBeepTransport(baseURL string) *BeepTransport {
	return &BeepTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *BeepTransport) SetCallbacks(onReady, onEnded func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onReady = onReady
	t.onEnded = onEnded
}

type bufferCloser struct {
	*bytes.Reader
}

func (bufferCloser) Close() error { return nil }

func (t *BeepTransport) Load(url string) error {
	if strings.HasPrefix(url, "/") {
		url = t.baseURL + url
	}

	resp, err := t.client.Get(url)
	if err != nil {
		return fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch audio: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	streamer, format, err := mp3.Decode(bufferCloser{bytes.NewReader(data)})
	if err != nil {
		return fmt.Errorf("decode audio: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.streamer != nil {
		speaker.Clear()
		t.streamer.Close()
	}

	t.streamer = streamer
	t.format = format

	// Reinitialize the speaker per track; tracks may differ in sample rate.
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Millisecond*100)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	t.ctrl = &beep.Ctrl{Streamer: streamer, Paused: true}

	onEnded := t.onEnded
	speaker.Play(beep.Seq(t.ctrl, beep.Callback(func() {
		if onEnded != nil {
			onEnded()
		}
	})))

	// Metadata is known as soon as decoding succeeds.
	if t.onReady != nil {
		go t.onReady()
	}

	return nil
}

func (t *BeepTransport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctrl == nil {
		return fmt.Errorf("no track loaded")
	}

	speaker.Lock()
	t.ctrl.Paused = false
	speaker.Unlock()

	return nil
}

func (t *BeepTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctrl == nil {
		return
	}

	speaker.Lock()
	t.ctrl.Paused = true
	speaker.Unlock()
}

func (t *BeepTransport) Seek(seconds float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.streamer == nil {
		return fmt.Errorf("no track loaded")
	}

	pos := t.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if pos < 0 {
		pos = 0
	}
	if pos >= t.streamer.Len() {
		pos = t.streamer.Len() - 1
	}

	speaker.Lock()
	err := t.streamer.Seek(pos)
	speaker.Unlock()

	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	return nil
}

func (t *BeepTransport) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := t.streamer.Position()
	speaker.Unlock()

	return t.format.SampleRate.D(pos).Seconds()
}

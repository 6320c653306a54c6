package audio

import (
	"context"
	"io"
	"log"

	"github.com/hajimehoshi/oto"
)

// Player pumps an Engine into the system audio device.
type Player struct {
	engine     *Engine
	otoContext *oto.Context
}

// NewPlayer opens the audio device for e.
func NewPlayer(e *Engine) (*Player, error) {
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, err
	}
	return &Player{engine: e, otoContext: otoContext}, nil
}

// Close releases the audio device.
func (p *Player) Close() error {
	log.Println("Closing Audio...")
	return p.otoContext.Close()
}

// Start resumes the engine and blocks until ctx is cancelled.
func (p *Player) Start(ctx context.Context) error {
	player := p.otoContext.NewPlayer()
	defer func() {
		if err := player.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	p.engine.Resume()

	// block until cancel() called
	r := &contextReader{ctx: ctx, r: p.engine}
	if _, err := io.CopyBuffer(player, r, make([]byte, bufferSizeInBytes)); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(buf []byte) (int, error) {
	select {
	case <-c.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
		return c.r.Read(buf)
	}
}

// Render writes the engine output for the given duration to w without an
// audio device, advancing the clock (and firing timers) as it goes.
func Render(e *Engine, w io.Writer, seconds float64) (int64, error) {
	buf := make([]byte, bufferSizeInBytes)
	blocks := int(seconds*sampleRate+samplesPerCycle-1) / samplesPerCycle
	var total int64
	for i := 0; i < blocks; i++ {
		n, err := e.Read(buf)
		if err != nil {
			return total, err
		}
		written, err := w.Write(buf[:n])
		total += int64(written)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

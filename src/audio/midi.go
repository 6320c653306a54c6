package audio

import (
	"context"
	"log"
	"strings"

	"gitlab.com/gomidi/rtmididrv"
)

// ListenToMidiIn streams raw messages from the first MIDI input whose name
// contains portName (any input when portName is empty). The channel is closed
// when ctx is done.
func ListenToMidiIn(ctx context.Context, portName string) <-chan []byte {
	ch := make(chan []byte, 256)
	go func() {
		defer close(ch)
		drv, err := rtmididrv.New()
		if err != nil {
			log.Printf("failed to initialize MIDI driver: %v\n", err)
			return
		}
		defer func() {
			if err := drv.Close(); err != nil {
				log.Printf("failed to close MIDI driver: %v\n", err)
			}
		}()
		ins, err := drv.Ins()
		if err != nil {
			log.Printf("failed to get MIDI IN: %v\n", err)
			return
		}
		log.Printf("MIDI IN: %v\n", ins)
		index := -1
		for i, in := range ins {
			if strings.Contains(in.String(), portName) {
				index = i
				break
			}
		}
		if index < 0 {
			log.Println("WARN: MIDI IN not found")
			return
		}
		in := ins[index]
		if err := in.Open(); err != nil {
			log.Printf("failed to open MIDI IN: %v\n", err)
			return
		}
		log.Println("opened " + in.String())
		defer func() {
			if err := in.Close(); err != nil {
				log.Printf("failed to close MIDI IN: %v\n", err)
			}
		}()
		if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
			msg := append([]byte(nil), data...)
			select {
			case ch <- msg:
			default:
				log.Println("WARN: MIDI IN buffer full, message dropped")
			}
		}); err != nil {
			log.Println("failed to set listener: " + err.Error())
			return
		}
		defer func() {
			log.Println("stop listening MIDI IN...")
			if err := in.StopListening(); err != nil {
				log.Printf("failed to stop listening: %v\n", err)
			}
		}()
		<-ctx.Done()
	}()
	return ch
}

package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jinjor/desktop-sequencer/src/audio"
	"github.com/jinjor/desktop-sequencer/src/sequencer"
)

func withIPCConnection(ctx context.Context, sockFileName string, f func(net.Conn) error) error {
	os.Remove(sockFileName)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", sockFileName)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing IPC...")
		err := listener.Close()
		if err != nil {
			log.Printf("error while closing listener: %v", err)
		}
		os.Remove(sockFileName)
	}()
	log.Printf("start listening on %s...\n", sockFileName)
	// Accept does not watch ctx
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		err := conn.Close()
		if err != nil {
			log.Printf("error while closing connection: %v", err)
		}
	}()
	return f(conn)
}

// errClientClosed ends the command group when the IPC client hangs up.
var errClientClosed = errors.New("IPC client closed the connection")

func receiveCommands(ctx context.Context, conn io.Reader, commandCh chan<- []string) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		default:
		}
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			log.Println("receiveCommands() ended by client.")
			return errClientClosed
		}
		if err != nil {
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		if len(line) == 0 {
			continue
		}
		command, err := parseCommand(string(line))
		if err != nil {
			log.Printf("error: %v", err)
			line = []byte{}
			continue
		}
		log.Printf("received: %s\n", string(line))
		line = []byte{}
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		case commandCh <- command:
		}
	}
	log.Println("receiveCommands() ended.")
	return nil
}

func parseCommand(line string) ([]string, error) {
	lineStr := strings.Split(line, " ")
	for i, item := range lineStr {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, err
		}
		lineStr[i] = escaped
	}
	return lineStr, nil
}

func formatFFT(result []float64) string {
	s := "fft"
	for _, value := range result {
		s += " " + strconv.FormatFloat(value, 'f', 6, 64)
	}
	return s
}

func formatState(m sequencer.Model) string {
	running := "0"
	if m.Sequencer.Running {
		running = "1"
	}
	words := []string{
		"state",
		running,
		strconv.Itoa(m.Sequencer.Step),
		strconv.Itoa(m.Sequencer.StepCount),
		strconv.FormatFloat(m.Sequencer.Tempo, 'f', -1, 64),
		url.QueryEscape(string(m.Synth.Waveform)),
		strconv.FormatFloat(m.Synth.DelayTime, 'f', -1, 64),
		strconv.FormatFloat(m.Synth.MasterGain, 'f', -1, 64),
	}
	for _, row := range m.Sequencer.Rows {
		steps := make([]byte, len(row.Steps))
		for i, on := range row.Steps {
			steps[i] = '0'
			if on {
				steps[i] = '1'
			}
		}
		words = append(words, url.QueryEscape(row.Name)+":"+string(steps))
	}
	return strings.Join(words, " ")
}

func sendReports(ctx context.Context, conn io.Writer, engine *audio.Engine, updates <-chan sequencer.Model) error {
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
loop:
	for {
		var s string
		select {
		case <-ctx.Done():
			log.Println("sendReports() interrupted")
			break loop
		case m, ok := <-updates:
			if !ok {
				break loop
			}
			s = formatState(m)
		case <-t.C:
			s = formatFFT(engine.GetFFT())
		}
		if _, err := conn.Write([]byte(s + "\n")); err != nil {
			return err
		}
	}
	log.Println("sendReports() ended.")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jinjor/desktop-sequencer/src/app"
	"github.com/jinjor/desktop-sequencer/src/audio"
	"github.com/jinjor/desktop-sequencer/src/config"
	"github.com/jinjor/desktop-sequencer/src/sequencer"
	"github.com/jinjor/desktop-sequencer/src/tui"
)

var (
	configPath string
	debug      bool
	tempo      float64
	socketPath string
	noMidi     bool
	outputFile string
	numSteps   int
	toggles    []string
)

func main() {
	log.SetFlags(log.Lshortfile)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "desktop-sequencer",
	Short: "Step sequencer synthesizer",
	Long: `desktop-sequencer plays a grid of steps per note through a small synth
with a delay bus.

Examples:
  desktop-sequencer run
  desktop-sequencer tui --tempo 120
  desktop-sequencer render -o out.raw --toggle C5:0 --toggle G4:4`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play audio and take commands from the IPC socket",
	RunE:  runRun,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Play audio with an interactive terminal UI",
	RunE:  runTUI,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render steps to raw 16-bit stereo PCM without an audio device",
	RunE:  runRender,
}

func init() {
	defaultPath, err := config.Path()
	if err != nil {
		defaultPath = "config.json"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log reconcile stats for every pass")
	rootCmd.PersistentFlags().Float64Var(&tempo, "tempo", 0, "Tempo in bpm (overrides config)")

	runCmd.Flags().StringVar(&socketPath, "socket", "", "Unix socket path (overrides config)")
	runCmd.Flags().BoolVar(&noMidi, "no-midi", false, "Do not listen to MIDI input")
	tuiCmd.Flags().BoolVar(&noMidi, "no-midi", false, "Do not listen to MIDI input")

	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = renderCmd.MarkFlagRequired("output")
	renderCmd.Flags().IntVarP(&numSteps, "steps", "n", 0, "Number of steps to render (default: one bar)")
	renderCmd.Flags().StringArrayVarP(&toggles, "toggle", "t", nil, "Step to turn on, as note:step")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(renderCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if tempo != 0 {
		cfg.Tempo = tempo
	}
	if socketPath != "" {
		cfg.Socket = socketPath
	}
	if noMidi {
		cfg.Midi = false
	}
	return cfg, cfg.Validate()
}

// newApp creates a resumed engine and an app whose bus is already declared.
func newApp(cfg *config.Config) (*app.App, *audio.Engine, error) {
	model, err := cfg.Model()
	if err != nil {
		return nil, nil, err
	}
	engine := audio.NewEngine()
	engine.Resume()
	a := app.New(engine, model)
	a.Debug = debug
	if err := a.Init(); err != nil {
		return nil, nil, err
	}
	return a, engine, nil
}

func withSignals(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-signalCh:
			log.Printf("Caught signal %s: shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(signalCh)
		cancel()
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	log.Printf("NumCPU: %v\n", runtime.NumCPU())
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, engine, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	player, err := audio.NewPlayer(engine)
	if err != nil {
		return err
	}
	defer player.Close()

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	err = withIPCConnection(ctx, cfg.Socket, func(conn net.Conn) error {
		g, ctx := errgroup.WithContext(ctx)
		commandCh := make(chan []string)
		g.Go(func() error {
			return player.Start(ctx)
		})
		g.Go(func() error {
			defer close(commandCh)
			return receiveCommands(ctx, conn, commandCh)
		})
		g.Go(func() error {
			return a.Commands(ctx, commandCh)
		})
		g.Go(func() error {
			return sendReports(ctx, conn, engine, a.Subscribe())
		})
		if cfg.Midi {
			g.Go(func() error {
				return a.HandleMidi(ctx, audio.ListenToMidiIn(ctx, cfg.MidiPort))
			})
		}
		return g.Wait()
	})
	if err != nil && !errors.Is(err, errClientClosed) {
		return err
	}
	log.Println("run ended.")
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	// the terminal belongs to the UI
	f, err := tea.LogToFile("desktop-sequencer.log", "")
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, engine, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	player, err := audio.NewPlayer(engine)
	if err != nil {
		return err
	}
	defer player.Close()

	ctx, stop := withSignals(cmd.Context())
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	g.Go(func() error {
		return player.Start(ctx)
	})
	if cfg.Midi {
		g.Go(func() error {
			return a.HandleMidi(ctx, audio.ListenToMidiIn(ctx, cfg.MidiPort))
		})
	}
	g.Go(func() error {
		defer cancel()
		p := tea.NewProgram(tui.NewModel(a, a.Subscribe()), tea.WithAltScreen(), tea.WithContext(ctx))
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Synth.MasterGain = 1
	a, engine, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	for _, t := range toggles {
		action, err := parseToggle(t)
		if err != nil {
			return err
		}
		if err := a.Dispatch(action); err != nil {
			return err
		}
	}
	m := a.Model()
	steps := numSteps
	if steps <= 0 {
		steps = m.Sequencer.StepCount
	}
	// leave room for the echoes
	seconds := audio.BlockDuration + float64(steps)*m.Sequencer.StepInterval + m.Synth.DelayTime

	f, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := a.Dispatch(sequencer.Play{}); err != nil {
		return err
	}
	// the clock starts one block ahead; stop a sample before it would start
	// the next step
	start := engine.CurrentTime() + audio.BlockDuration
	end := start + float64(steps)*m.Sequencer.StepInterval - 1.0/audio.SampleRate
	engine.ScheduleAt(end, func(float64) {
		if err := a.Dispatch(sequencer.Stop{}); err != nil {
			log.Printf("error: %v", err)
		}
	})
	n, err := audio.Render(engine, f, seconds)
	if err != nil {
		return err
	}
	log.Printf("wrote %d bytes (%d steps, %.2fs) to %s\n", n, steps, seconds, outputFile)
	return nil
}

func parseToggle(s string) (sequencer.Action, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return nil, fmt.Errorf("toggle must be note:step, got %q", s)
	}
	step, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return nil, fmt.Errorf("toggle must be note:step, got %q", s)
	}
	return sequencer.ToggleStep{Note: s[:i], Step: step}, nil
}

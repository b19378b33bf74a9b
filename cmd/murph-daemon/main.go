package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"murph/internal/audio"
	"murph/internal/brain"
	"murph/internal/config"
	"murph/internal/gen"
	"murph/internal/ipc"
	"murph/internal/memory"
	"murph/internal/notify"
	"murph/internal/proxy"
	"murph/internal/realtime"
	"murph/internal/sites"
	"murph/internal/store"
	"murph/internal/stt"
	"murph/internal/tts"
	"murph/internal/wake"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

var greetings = []string{"Yoo!", "Hey!", "What's up!"}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS proxy address (optional)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	noCache := cli.Bool("no-answer-cache", false, "Disable reuse of prior answers by substring match")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(1)
	}

	httpClient := http.DefaultClient
	if *proxyAddr != "" {
		httpClient, err = proxy.NewSocksClient(*proxyAddr)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
			os.Exit(1)
		}
		log.Debug("Loaded proxy")
	}

	st, err := store.Open(cfg.DBPath, store.DefaultRetryPolicy())
	if err != nil {
		log.Error("Failed to open memory store", "db", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	log.Debug("Loaded memory store")

	genClient := gen.New(gen.Config{
		APIKey:     cfg.GroqAPIKey,
		Model:      cfg.Model,
		HTTPClient: httpClient,
	})
	mem := memory.New(st, genClient, memory.WithAnswerCache(!*noCache))
	router := brain.New(mem, realtime.New(httpClient), sites.NewLauncher())

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	log.Debug("Loaded recorder")

	detector, err := wake.New(cfg.PorcupineAccessKey, cfg.KeywordPath)
	if err != nil {
		log.Error("Failed to init wake word engine", "err", err)
		os.Exit(1)
	}
	defer detector.Close()

	log.Debug("Loaded wake word engine")

	a := &assistant{
		rec:    rec,
		stt:    stt.New(cfg.GroqAPIKey, httpClient),
		router: router,
		voice:  tts.New(cfg.ElevenLabsAPIKey, cfg.VoiceID, httpClient),
		chime:  cfg.ChimePath,
	}

	ctl := make(chan string, 1)
	if err := ipc.StartServer(func(msg ipc.ControlMessage) {
		switch msg.Cmd {
		case "trigger":
			select {
			case ctl <- "":
			default:
			}
		case "say":
			select {
			case ctl <- msg.Text:
			default:
			}
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
		}
	}); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful")

	a.run(detector, ctl)
}

type assistant struct {
	rec    *audio.Recorder
	stt    *stt.Transcriber
	router *brain.Router
	voice  *tts.Speaker
	chime  string
}

// run alternates between listening for the wake word and handling one turn
// end-to-end. The two phases share the default input device, so they never
// overlap.
func (a *assistant) run(detector *wake.Detector, ctl <-chan string) {
	state := &brain.State{}

	for {
		text, typed := a.listen(detector, ctl)
		if typed && text != "" {
			a.respond(state, text)
			continue
		}
		a.handleTurn(state)
	}
}

// listen blocks until either the wake word fires or a control message
// arrives. It returns the typed text (if any) and whether the trigger came
// over the control socket.
func (a *assistant) listen(detector *wake.Detector, ctl <-chan string) (string, bool) {
	log.Info("Listening for wake word")

	var (
		ctlText string
		viaCtl  bool
	)
	err := a.rec.Frames(detector.FrameLength(), func(frame []int16) bool {
		select {
		case t := <-ctl:
			ctlText, viaCtl = t, true
			return false
		default:
		}

		hit, derr := detector.Detect(frame)
		if derr != nil {
			log.Error("Wake detection failed", "err", derr)
			return true
		}
		return !hit
	})
	if err != nil {
		log.Error("Wake stream failed", "err", err)
		// Without a working microphone only the control socket remains.
		t := <-ctl
		return t, true
	}

	return ctlText, viaCtl
}

func (a *assistant) handleTurn(state *brain.State) {
	log.Info("Wake word detected")

	a.greet()

	pcm, err := a.rec.Record(5 * time.Second)
	if err != nil {
		log.Error("Failed to record", "err", err)
		return
	}

	log.Info("Recorded", "samples", len(pcm))

	wavPath := filepath.Join(os.TempDir(), "murph-command.wav")
	if err := audio.WriteWAV(wavPath, pcm); err != nil {
		log.Error("Failed to encode recording", "err", err)
		return
	}
	defer os.Remove(wavPath)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	text, err := a.stt.Transcribe(ctx, wavPath)
	if err != nil {
		log.Error("Failed to transcribe", "err", err)
		return
	}
	if text == "" {
		log.Info("Heard nothing")
		return
	}

	log.Info("Transcribed", "text", text)

	a.respond(state, text)
}

func (a *assistant) respond(state *brain.State, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply := a.router.Respond(ctx, text, state)

	log.Info("Responding", "reply", reply)

	if err := a.voice.Speak(ctx, reply); err != nil {
		log.Error("Failed to voice reply", "err", err)
	}
}

func (a *assistant) greet() {
	if a.chime != "" {
		if err := notify.Chime(a.chime); err != nil {
			log.Warn("Failed to play chime", "err", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.voice.Speak(ctx, greetings[rand.Intn(len(greetings))]); err != nil {
		log.Warn("Failed to voice greeting", "err", err)
	}
}

// echoback is a minimal local echo-back loop with the switch-gate echo
// suppressor in the path. Captured microphone audio is processed in 10 ms
// blocks and fed back to the speaker; the processed output accumulates in a
// jitter buffer and becomes the far-end reference for later blocks, so the
// gate is suppressing the loopback of your own voice.
//
// Usage:
//
//	echoback [-passthrough] [-input-delay-ms N] [-loopback-delay-ms N]
//	         [-monitor-addr :8090] [-rate 16000] [-tuning tuning.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gen2brain/malgo"
	"github.com/joho/godotenv"

	"github.com/mines-audio/echogate/pkg/audio"
	"github.com/mines-audio/echogate/pkg/monitor"
	"github.com/mines-audio/echogate/pkg/suppressor"
)

// sampleQueue is a device-domain FIFO of int16 samples. All access happens on
// the single malgo data callback, so no locking is needed.
type sampleQueue struct {
	buf  []int16
	head int
}

func (q *sampleQueue) push(samples []int16) {
	q.buf = append(q.buf, samples...)
}

func (q *sampleQueue) pushOne(s int16) {
	q.buf = append(q.buf, s)
}

func (q *sampleQueue) size() int {
	return len(q.buf) - q.head
}

func (q *sampleQueue) popOne() int16 {
	s := q.buf[q.head]
	q.head++
	q.compact()
	return s
}

// popBlock fills dst and reports success only when enough samples are queued.
func (q *sampleQueue) popBlock(dst []int16) bool {
	if q.size() < len(dst) {
		return false
	}
	copy(dst, q.buf[q.head:])
	q.head += len(dst)
	q.compact()
	return true
}

func (q *sampleQueue) compact() {
	if q.head > 4096 && q.head*2 > len(q.buf) {
		q.buf = append(q.buf[:0], q.buf[q.head:]...)
		q.head = 0
	}
}

type engine struct {
	sup         *suppressor.Suppressor
	block       int
	passthrough bool

	rec    sampleQueue // captured samples, after the optional input delay
	outDev sampleQueue // samples headed to the speaker
	jitter sampleQueue // processed output, the far-end reference for later blocks

	delayLine   sampleQueue // raw capture samples waiting for release
	delayTarget int
	farDelay    sampleQueue // extra delay on the speaker path
	farTarget   int

	farBlock, nearBlock, outBlock []float64
	near16, far16, speaker16      []int16
	processed16                   []int16

	blockCount uint64
	lagStats   *suppressor.LagStats
	mon        *monitor.Server
}

func newEngine(sup *suppressor.Suppressor, passthrough bool, delayTarget, farTarget int, mon *monitor.Server) *engine {
	block := sup.BlockSamples()
	return &engine{
		sup:         sup,
		block:       block,
		passthrough: passthrough,
		delayTarget: delayTarget,
		farTarget:   farTarget,
		farBlock:    make([]float64, block),
		nearBlock:   make([]float64, block),
		outBlock:    make([]float64, block),
		near16:      make([]int16, block),
		far16:       make([]int16, block),
		speaker16:   make([]int16, block),
		processed16: make([]int16, block),
		lagStats:    suppressor.NewLagStats(10),
		mon:         mon,
	}
}

// enqueueCapture routes one captured sample through the optional startup
// delay line; until the line fills, silence is fed downstream instead.
func (e *engine) enqueueCapture(s int16) {
	e.delayLine.pushOne(s)
	if e.delayLine.size() <= e.delayTarget {
		e.rec.pushOne(0)
	} else {
		e.rec.pushOne(e.delayLine.popOne())
	}
}

// applyLoopbackDelay delays the speaker path, simulating a slow acoustic
// round trip so the lag search has something to find.
func (e *engine) applyLoopbackDelay(block []int16) {
	if e.farTarget == 0 {
		return
	}
	for i, s := range block {
		e.farDelay.pushOne(s)
		var delayed int16
		if e.farDelay.size() > e.farTarget {
			delayed = e.farDelay.popOne()
		}
		block[i] = delayed
	}
}

// processAvailable runs as many complete blocks as the capture queue holds.
func (e *engine) processAvailable() {
	for e.rec.popBlock(e.near16) {
		if !e.jitter.popBlock(e.far16) {
			for i := range e.far16 {
				e.far16[i] = 0
			}
		}
		copy(e.speaker16, e.far16)
		e.applyLoopbackDelay(e.speaker16)

		if e.passthrough {
			copy(e.processed16, e.near16)
		} else {
			audio.PCM16ToFloat64(e.far16, e.farBlock)
			audio.PCM16ToFloat64(e.near16, e.nearBlock)

			res := e.sup.ProcessBlock(e.farBlock, e.nearBlock, e.outBlock)
			audio.Float64ToPCM16(e.outBlock, e.processed16)

			e.lagStats.Add(res.Lag)
			e.report(res)
		}
		e.blockCount++

		// Local loopback: the processed output becomes the far-end
		// reference a few blocks from now.
		e.jitter.push(e.processed16)
		e.outDev.push(e.speaker16)
	}
}

func (e *engine) report(res suppressor.Result) {
	rep := suppressor.Report{
		Block:      e.blockCount,
		Gain:       res.Gain,
		Lag:        res.Lag,
		Suppressed: res.Suppressed,
	}
	if e.mon != nil {
		e.mon.Publish(rep)
	}

	if e.lagStats.Ready() {
		lagStr := "--"
		if res.Lag >= 0 {
			lagStr = strconv.Itoa(res.Lag)
		}
		fmt.Fprintf(os.Stderr, "[block %d] mute=%.1f%% (gain=%.3f %s, lag=%s samples; %s)\n",
			rep.Block, rep.MutePercent(), rep.Gain, rep.Meter(), lagStr, e.lagStats)
		return
	}
	fmt.Fprintln(os.Stderr, rep)
}

// onSamples is the malgo duplex data callback. Capture and playback arrive
// together; all block processing happens here, on one thread, in order.
func (e *engine) onSamples(pOutput, pInput []byte, frameCount uint32) {
	if pInput != nil {
		for _, s := range audio.BytesToPCM16(pInput) {
			e.enqueueCapture(s)
		}
	}

	e.processAvailable()

	if pOutput != nil {
		for i := 0; i+1 < len(pOutput); i += 2 {
			var s int16
			if e.outDev.size() > 0 {
				s = e.outDev.popOne()
			}
			pOutput[i] = byte(s)
			pOutput[i+1] = byte(s >> 8)
		}
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	var (
		passthrough     = flag.Bool("passthrough", false, "Bypass the suppressor and play captured audio unchanged")
		inputDelayMS    = flag.Int("input-delay-ms", 0, "Startup delay applied to the capture stream, rounded to whole blocks")
		loopbackDelayMS = flag.Int("loopback-delay-ms", 0, "Extra delay on the speaker path to simulate a slow echo round trip")
		rate            = flag.Int("rate", envInt("ECHOGATE_SAMPLE_RATE", 16000), "Sample rate in Hz")
		tuning          = flag.String("tuning", os.Getenv("ECHOGATE_TUNING"), "Path to YAML tuning file (optional)")
		monitorAddr     = flag.String("monitor-addr", os.Getenv("ECHOGATE_MONITOR_ADDR"), "Address for the WebSocket block monitor (empty disables)")
	)
	flag.Parse()

	cfg := suppressor.DefaultConfig()
	if *tuning != "" {
		loaded, err := suppressor.LoadConfig(*tuning)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}

	sup := suppressor.New(*rate, cfg)
	block := sup.BlockSamples()

	mode := "suppressor"
	if *passthrough {
		mode = "passthrough"
	}
	fmt.Fprintf(os.Stderr, "echoback (%dk mono): mode=%s\n", *rate/1000, mode)
	if !*passthrough {
		fmt.Fprintf(os.Stderr,
			"  config: atten=%.1f dB, rho=%.2f, ratio=%.2f, hang=%d, attack=%.3f, release=%.3f, metric=%s\n",
			cfg.AttenuationDB, cfg.SimilarityThreshold, cfg.PowerRatioCeiling,
			cfg.HangoverBlocks, cfg.Attack, cfg.Release, cfg.Metric)
	}

	// Input delay rounds to whole blocks so the capture stream stays aligned.
	rawInput := (*inputDelayMS**rate + 999) / 1000
	delayBlocks := (rawInput + block/2) / block
	delayTarget := delayBlocks * block
	fmt.Fprintf(os.Stderr, "input-delay-ms(final): %.1f ms (%d samples, %d blocks)\n",
		float64(delayTarget)*1000/float64(*rate), delayTarget, delayBlocks)

	farTarget := 0
	if *loopbackDelayMS > 0 {
		farTarget = (*loopbackDelayMS**rate + 999) / 1000
	}
	fmt.Fprintf(os.Stderr, "loopback-delay-ms(final): %.1f ms (%d samples)\n",
		float64(farTarget)*1000/float64(*rate), farTarget)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mon *monitor.Server
	if *monitorAddr != "" {
		mon = monitor.NewServer(*monitorAddr)
		go func() {
			if err := mon.Run(ctx); err != nil {
				log.Printf("monitor stopped: %v", err)
			}
		}()
		fmt.Fprintf(os.Stderr, "block monitor: ws://%s\n", *monitorAddr)
	}

	eng := newEngine(sup, *passthrough, delayTarget, farTarget, mon)

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer mctx.Uninit()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(*rate)
	deviceConfig.PeriodSizeInFrames = uint32(block)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: eng.onSamples,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		log.Fatal(err)
	}

	fmt.Fprintln(os.Stderr, "Running... Ctrl-C to stop.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Fprintln(os.Stderr, "stopped.")
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

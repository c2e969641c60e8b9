package audio

import (
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/junolabs/go-juno/internal/log"
)

// Pipeline renders PCM16 to the robot speaker through a GStreamer process
// reading raw audio on stdin. It is the production Output/OnStop pair for a
// Playback; tests use in-memory doubles instead.
type Pipeline struct {
	sampleRate int

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	running bool
}

// NewPipeline returns a speaker pipeline for PCM16 mono at the given rate.
func NewPipeline(sampleRate int) *Pipeline {
	if sampleRate == 0 {
		sampleRate = 24000
	}
	return &Pipeline{sampleRate: sampleRate}
}

// Write queues one PCM16 chunk, starting the GStreamer process on first use.
// A dead pipeline is torn down so the next chunk restarts it.
func (p *Pipeline) Write(pcm []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		if err := p.startLocked(); err != nil {
			log.Error("audio: pipeline start failed", "err", err)
			return
		}
	}
	if p.stdin == nil {
		return
	}
	if _, err := p.stdin.Write(pcm); err != nil {
		log.Warn("audio: pipeline write failed, restarting", "err", err)
		p.stopLocked()
	}
}

// Stop kills the pipeline immediately, dropping anything buffered. Used on
// interrupt, where latency matters more than draining.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pipeline) startLocked() error {
	pipeline := fmt.Sprintf(
		`gst-launch-1.0 -q fdsrc fd=0 ! queue max-size-time=5000000000 `+
			`! rawaudioparse format=pcm pcm-format=s16le sample-rate=%d num-channels=1 `+
			`! audioconvert ! audioresample ! autoaudiosink sync=true`,
		p.sampleRate)

	p.cmd = exec.Command("bash", "-c", pipeline)

	var err error
	p.stdin, err = p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		p.stdin = nil
		return fmt.Errorf("start cmd: %w", err)
	}

	p.running = true
	return nil
}

func (p *Pipeline) stopLocked() {
	if p.stdin != nil {
		p.stdin.Close()
		p.stdin = nil
	}
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
	p.running = false
	p.cmd = nil
}

package detector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	scriptName = "mediapipe_service.py"
	// frameQuality trades landmark accuracy against pipe bandwidth.
	frameQuality = 90
)

// ErrServiceNotFound is returned when the landmark service script cannot be
// located.
var ErrServiceNotFound = errors.New(scriptName + " not found")

// service is one running landmark process. Requests are a 4-byte big endian
// length followed by a JPEG; each reply is a single JSON line.
type service struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
}

func startService(python, script string) (*service, error) {
	cmd := exec.Command(python, script)
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", script, err)
	}
	return &service{cmd: cmd, in: in, out: bufio.NewReader(out)}, nil
}

func (s *service) roundTrip(jpeg []byte) ([]byte, error) {
	msg := make([]byte, 4, 4+len(jpeg))
	binary.BigEndian.PutUint32(msg, uint32(len(jpeg)))
	msg = append(msg, jpeg...)

	if _, err := s.in.Write(msg); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}
	line, err := s.out.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return line, nil
}

// stop closes stdin, which the service treats as shutdown, and waits.
func (s *service) stop() error {
	s.in.Close()
	return s.cmd.Wait()
}

// MediaPipeDetector runs MediaPipe Hands in a Python subprocess. The process
// starts on the first frame and stops after IdleTimeout without frames.
type MediaPipeDetector struct {
	mu     sync.Mutex
	config Config
	script string
	log    logrus.FieldLogger
	svc    *service
	idle   *time.Timer
}

// NewMediaPipeDetector checks that the service script exists. Nothing is
// started until Detect is called.
func NewMediaPipeDetector(config Config, log logrus.FieldLogger) (*MediaPipeDetector, error) {
	script := config.ScriptPath
	if script == "" {
		script = searchInstall("scripts", scriptName)
	}
	if script == "" {
		return nil, ErrServiceNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MediaPipeDetector{config: config, script: script, log: log}, nil
}

func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.svc == nil {
		python := d.interpreter()
		svc, err := startService(python, d.script)
		if err != nil {
			return nil, err
		}
		d.svc = svc
		d.log.WithFields(logrus.Fields{"python": python, "script": d.script}).Info("mediapipe service started")
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{int(gocv.IMWriteJpegQuality), frameQuality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	line, err := d.svc.roundTrip(buf.GetBytes())
	if err != nil {
		// Drop the broken process; the next frame starts a fresh one.
		if werr := d.stop(); werr != nil {
			d.log.WithError(werr).Warn("mediapipe service exited")
		}
		return nil, err
	}

	d.armIdle()
	return parseResponse(line, d.config.MinConfidence, d.config.MaxHands)
}

// Close stops the service if it is running.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

func (d *MediaPipeDetector) stop() error {
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	if d.svc == nil {
		return nil
	}
	err := d.svc.stop()
	d.svc = nil
	return err
}

func (d *MediaPipeDetector) armIdle() {
	if d.config.IdleTimeout <= 0 {
		return
	}
	if d.idle != nil {
		d.idle.Reset(d.config.IdleTimeout)
		return
	}
	d.idle = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.idle = nil
		if err := d.stop(); err != nil {
			d.log.WithError(err).Debug("idle mediapipe service stopped")
		}
	})
}

// interpreter prefers the configured Python, then a virtual environment
// installed alongside the binary.
func (d *MediaPipeDetector) interpreter() string {
	if d.config.Python != "" {
		return d.config.Python
	}
	if venv := searchInstall("venv", "bin", "python"); venv != "" {
		return venv
	}
	return "python3"
}

type serviceResponse struct {
	Hands []HandLandmarks `json:"hands"`
	Error string          `json:"error,omitempty"`
}

// parseResponse decodes one service line, dropping hands under minScore and
// keeping at most maxHands.
func parseResponse(line []byte, minScore float64, maxHands int) ([]HandLandmarks, error) {
	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", resp.Error)
	}

	hands := make([]HandLandmarks, 0, len(resp.Hands))
	for _, h := range resp.Hands {
		if h.Score < minScore {
			continue
		}
		if maxHands > 0 && len(hands) == maxHands {
			break
		}
		hands = append(hands, h)
	}
	return hands, nil
}

// searchInstall looks for rel under the working directory, its parent, the
// binary's directory and ~/.touchtyped, returning the first absolute match.
func searchInstall(rel ...string) string {
	var roots []string
	roots = append(roots, ".", "..")
	if exe, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(exe))
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".touchtyped"))
	}

	for _, root := range roots {
		path := filepath.Join(append([]string{root}, rel...)...)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

//go:build !ci

package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/palemoky/party-games/internal/logger"
)

const sampleRate = beep.SampleRate(44100)

type SoundManager struct {
	dir     string
	buffers map[string]*beep.Buffer

	mu      sync.RWMutex
	enabled bool
	volume  float64
}

func NewSoundManager(dir string, volume float64) *SoundManager {
	return &SoundManager{
		dir:     dir,
		buffers: make(map[string]*beep.Buffer),
		volume:  volume,
	}
}

func (sm *SoundManager) Init() error {
	// 较小的缓冲以降低延迟
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	if err := sm.loadSoundFiles(); err != nil {
		return err
	}
	sm.mu.Lock()
	sm.enabled = true
	sm.mu.Unlock()
	return nil
}

// loadSoundFiles 加载目录下的 mp3/wav，目录不存在时没有音效
func (sm *SoundManager) loadSoundFiles() error {
	files, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sound directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".mp3" && ext != ".wav" {
			continue
		}
		if err := sm.loadSoundFile(name, strings.TrimSuffix(name, filepath.Ext(name)), ext); err != nil {
			logger.Debugf("音效 %s 加载失败: %v", name, err)
		}
	}
	return nil
}

func (sm *SoundManager) loadSoundFile(name, baseName, ext string) error {
	f, err := os.Open(filepath.Clean(filepath.Join(sm.dir, name)))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format
	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		return err
	}
	defer func() { _ = streamer.Close() }()

	var resampled beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		resampled = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 4})
	buffer.Append(resampled)
	sm.buffers[baseName] = buffer
	return nil
}

func (sm *SoundManager) Play(name string) {
	sm.mu.RLock()
	enabled, volume := sm.enabled, sm.volume
	sm.mu.RUnlock()
	if !enabled {
		return
	}

	buffer, ok := sm.buffers[name]
	if !ok {
		return
	}
	level, silent := gain(volume)
	speaker.Play(&effects.Volume{
		Streamer: buffer.Streamer(0, buffer.Len()),
		Base:     2,
		Volume:   level,
		Silent:   silent,
	})
}

func (sm *SoundManager) SetVolume(v float64) {
	sm.mu.Lock()
	sm.volume = v
	sm.mu.Unlock()
}

func (sm *SoundManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.enabled {
		speaker.Clear()
	}
	sm.enabled = false
}

var _ Player = (*SoundManager)(nil)

// Package settings 客户端本地设置（音量、昵称、身份令牌），保存为 YAML
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	dirName  = ".party-games"
	fileName = "settings.yaml"

	defaultVolume = 0.8
	defaultServer = "localhost:1780"
)

// Settings 本地设置
type Settings struct {
	Name   string  `yaml:"name"`
	Token  string  `yaml:"token"`
	Server string  `yaml:"server"`
	Volume float64 `yaml:"volume"` // 0~1
	Muted  bool    `yaml:"muted"`
}

// Default 默认设置
func Default() Settings {
	return Settings{Server: defaultServer, Volume: defaultVolume}
}

// DefaultPath 返回 ~/.party-games/settings.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName, fileName), nil
}

// Store 设置文件的读写，并发安全
type Store struct {
	path string

	mu       sync.RWMutex
	settings Settings
}

// Open 读取设置文件，不存在时使用默认值
func Open(path string) (*Store, error) {
	s := &Store{path: path, settings: Default()}

	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	s.settings.Volume = clamp(s.settings.Volume)
	if s.settings.Server == "" {
		s.settings.Server = defaultServer
	}
	return s, nil
}

// Get 当前设置的副本
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update 修改设置并立即保存
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	fn(&next)
	next.Volume = clamp(next.Volume)
	if err := s.save(next); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// SetVolume 设置音量，超出 0~1 的值会被截断
func (s *Store) SetVolume(v float64) error {
	return s.Update(func(st *Settings) { st.Volume = v })
}

// SetIdentity 保存服务器下发的身份
func (s *Store) SetIdentity(name, token string) error {
	return s.Update(func(st *Settings) {
		st.Name = name
		st.Token = token
	})
}

// save 先写临时文件再重命名
func (s *Store) save(st Settings) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}

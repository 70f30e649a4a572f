package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/party-games/internal/logger"
	"github.com/palemoky/party-games/internal/settings"
	"github.com/palemoky/party-games/internal/sound"
	"github.com/palemoky/party-games/internal/transport"
	"github.com/palemoky/party-games/internal/ui"
)

func main() {
	serverAddr := flag.String("server", "", "服务器地址（默认读取本地设置）")
	name := flag.String("name", "", "昵称")
	soundDir := flag.String("sounds", "assets/sounds", "音效目录")
	flag.Parse()

	// 界面占用终端，日志写入文件
	if err := logger.Init(logger.Options{Level: "debug", ToFile: true, FileName: "client.log"}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
	}
	defer logger.Close()

	var store *settings.Store
	if path, err := settings.DefaultPath(); err == nil {
		if store, err = settings.Open(path); err != nil {
			logger.Warnf("⚠️ 读取本地设置失败: %v", err)
			store = nil
		}
	}
	prefs := settings.Default()
	if store != nil {
		prefs = store.Get()
	}

	addr := prefs.Server
	if *serverAddr != "" {
		addr = *serverAddr
	}
	nickname := prefs.Name
	if *name != "" {
		nickname = *name
	}

	volume := prefs.Volume
	if prefs.Muted {
		volume = 0
	}
	player := sound.NewSoundManager(*soundDir, volume)
	go func() {
		if err := player.Init(); err != nil {
			logger.Warnf("⚠️ 音效初始化失败: %v", err)
		}
	}()

	client := transport.NewClient(fmt.Sprintf("ws://%s/ws", addr), transport.WithIdentity(prefs.Token, nickname))
	model := ui.NewOnlineModel(client, store, player)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Errorf("❌ 启动客户端时出错: %v", err)
		fmt.Fprintf(os.Stderr, "启动客户端时出错: %v\n", err)
		os.Exit(1)
	}
}

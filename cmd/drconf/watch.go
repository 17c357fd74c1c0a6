package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/sshcollectorpro/drconf/internal/config"
	"github.com/sshcollectorpro/drconf/pkg/logger"
)

// watchConfig 配置文件变化后刷新日志配置。会话参数只在启动时读取，运行中的批量任务不受影响
func watchConfig(ctx context.Context, cfg *config.Config) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("Config watch init failed: %v", err)
		return
	}
	defer watcher.Close()
	// 监听目录，兼容编辑器先删除再写入的保存方式
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warnf("Config watch add failed: %v", err)
		return
	}

	var debounce *time.Timer
	debounceInterval := 300 * time.Millisecond
	reload := make(chan struct{}, 1)
	trigger := func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("Config watch error: %v", err)
		case <-reload:
			newCfg, err := config.Load(path)
			if err != nil {
				logger.Warnf("Config reload failed: %v", err)
				continue
			}
			cfg.Log = newCfg.Log
			if err := logger.Init(cfg.Log.Logger()); err != nil {
				logger.Warnf("Logger reload failed: %v", err)
				continue
			}
			logger.Infof("Config reloaded, log level %s", cfg.Log.Level)
		}
	}
}

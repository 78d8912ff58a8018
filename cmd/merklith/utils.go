// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"crypto/ecdsa"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/merklith/merklith/log"
	"github.com/merklith/merklith/merklith"
)

func initLogger(ctx *cli.Context) {
	var level slog.Level
	switch ctx.Int(verbosityFlag.Name) {
	case 0:
		level = log.LevelCrit
	case 1:
		level = log.LevelError
	case 2:
		level = log.LevelWarn
	case 3:
		level = log.LevelInfo
	case 4:
		level = log.LevelDebug
	default:
		level = log.LevelTrace
	}
	lvl := new(slog.LevelVar)
	lvl.Set(level)

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, lvl)
	} else {
		useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
}

// loadConfigFile applies parameter overrides from a YAML file. Must run
// before the first parameter read locks the configuration.
func loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}

	var cfg merklith.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return errors.Wrap(err, "parse config file")
	}
	merklith.SetConfig(cfg)
	return nil
}

func loadOrGenerateKeyFile(keyFile string) (*ecdsa.PrivateKey, error) {
	if key, err := crypto.LoadECDSA(keyFile); err == nil {
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(keyFile, key); err != nil {
		return nil, err
	}
	return key, nil
}

// handleExitSignal returns a context canceled on SIGINT or SIGTERM.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		log.Root().Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

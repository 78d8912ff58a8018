// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// merklith runs a proof-of-contribution validator network in one process:
// every validator gets its own consensus engine and ledger view, wired
// together over an in-process broadcast hub.
package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/merklith/merklith/cmd/merklith/httpserver"
	"github.com/merklith/merklith/consensus"
	"github.com/merklith/merklith/log"
	"github.com/merklith/merklith/merklith"
	"github.com/merklith/merklith/metrics"
	"github.com/merklith/merklith/node"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Merklith",
		Usage:     "Proof-of-contribution consensus node",
		Copyright: "2025 The Merklith developers",
		Flags: []cli.Flag{
			configFlag,
			keyFileFlag,
			keyHexFlag,
			validatorsFlag,
			stakeFlag,
			apiAddrFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { log.Root().Info("exited") }()

	initLogger(ctx)

	if path := ctx.String(configFlag.Name); path != "" {
		if err := loadConfigFile(path); err != nil {
			return err
		}
	}
	merklith.LockConfig()

	stake, ok := new(big.Int).SetString(ctx.String(stakeFlag.Name), 10)
	if !ok {
		return errors.New("-stake: invalid number")
	}

	keys, err := makeKeys(ctx)
	if err != nil {
		return err
	}

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return errors.Wrap(err, "start metrics server")
		}
		log.Root().Info("metrics server started", "url", url)
		defer closeFunc()
	}

	nodes, err := buildNetwork(keys, stake)
	if err != nil {
		return err
	}

	apiURL, closeAPI, err := httpserver.StartAPIServer(ctx.String(apiAddrFlag.Name), nodes[0].Engine())
	if err != nil {
		return errors.Wrap(err, "start API server")
	}
	defer func() { log.Root().Info("stopping API server..."); closeAPI() }()

	log.Root().Info("network started",
		"validators", len(nodes), "stake", stake, "api", apiURL)

	exitCtx := handleExitSignal()
	g, runCtx := errgroup.WithContext(exitCtx)
	for _, n := range nodes {
		n := n
		g.Go(func() error { return n.Run(runCtx) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// makeKeys assembles the validator key set: the master key from flags (or
// generated) plus one generated key per additional validator.
func makeKeys(ctx *cli.Context) ([]*ecdsa.PrivateKey, error) {
	count := ctx.Int(validatorsFlag.Name)
	if count < 1 {
		return nil, errors.New("-validators: must be at least 1")
	}

	var first *ecdsa.PrivateKey
	var err error
	if keyHex := ctx.String(keyHexFlag.Name); keyHex != "" {
		if first, err = crypto.HexToECDSA(keyHex); err != nil {
			return nil, errors.Wrap(err, "-key-hex")
		}
	} else if keyFile := ctx.String(keyFileFlag.Name); keyFile != "" {
		if first, err = loadOrGenerateKeyFile(keyFile); err != nil {
			return nil, errors.Wrap(err, "-key-file")
		}
	} else if first, err = crypto.GenerateKey(); err != nil {
		return nil, err
	}

	keys := []*ecdsa.PrivateKey{first}
	for i := 1; i < count; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// buildNetwork creates one node per key, registers every validator in every
// engine and joins them all to one broadcast hub.
func buildNetwork(keys []*ecdsa.PrivateKey, stake *big.Int) ([]*node.Node, error) {
	genesis := merklith.Blake2b([]byte("merklith genesis"))
	now := uint64(time.Now().Unix())
	hub := node.NewHub()

	nodes := make([]*node.Node, 0, len(keys))
	for _, key := range keys {
		master := &node.Master{PrivateKey: key}
		engine := consensus.New()

		for _, peerKey := range keys {
			addr := merklith.PubkeyToAddress(&peerKey.PublicKey)
			pub := crypto.FromECDSAPub(&peerKey.PublicKey)
			if err := engine.RegisterValidator(addr, stake, pub, now); err != nil {
				return nil, errors.Wrapf(err, "register validator %v", addr)
			}
		}

		n := node.New(master, engine, node.NewMemLedger(genesis), nil)
		hub.Join(n)
		nodes = append(nodes, n)
	}

	nodes[0].Engine().OnReward(func(proposer merklith.Address, blockNumber uint64, amount *big.Int) {
		log.Root().Debug("block reward accrued",
			"proposer", proposer, "number", blockNumber, "amount", amount)
	})
	return nodes, nil
}

// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a YAML file overriding consensus parameters",
	}
	keyFileFlag = cli.StringFlag{
		Name:  "key-file",
		Usage: "path to the master key file, generated when missing",
	}
	keyHexFlag = cli.StringFlag{
		Name:   "key-hex",
		Usage:  "master private key as hex",
		Hidden: true,
	}
	validatorsFlag = cli.IntFlag{
		Name:  "validators",
		Value: 4,
		Usage: "number of in-process validators in the solo network",
	}
	stakeFlag = cli.StringFlag{
		Name:  "stake",
		Value: "1000000",
		Usage: "stake registered per validator",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
)

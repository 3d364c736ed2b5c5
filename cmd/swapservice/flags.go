package main

import "github.com/urfave/cli/v2"

const (
	configFlagName = "config"
	amountFlagName = "amount"
)

var (
	configFlag = &cli.StringFlag{
		Name:    configFlagName,
		Usage:   "path to the YAML config file; a missing file means defaults plus environment",
		Value:   "config.yaml",
		EnvVars: []string{"SWAP_CONFIG"},
	}
	amountFlag = &cli.StringFlag{
		Name:     amountFlagName,
		Usage:    "input amount in token units, e.g. 10.5",
		Required: true,
	}
)

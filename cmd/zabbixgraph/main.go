// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v2"

	"github.com/mirrormon/zabbixgraph/logger"
	"github.com/mirrormon/zabbixgraph/zabbixgraph"
)

var version = "development"

type option struct {
	ConfigFile  string `short:"c" long:"config" description:"jobs file to read" default:"zabbixgraph.conf.yml"`
	Concurrency int    `short:"j" long:"concurrency" description:"max concurrent requests" default:"4"`
	Debug       bool   `short:"d" long:"debug" description:"debug mode"`
	Version     bool   `short:"v" long:"version" description:"display the version and exit"`
}

type fileConfig struct {
	Jobs []zabbixgraph.Request `yaml:"jobs"`
}

func parseCLI(args []string) (*option, error) {
	opt := &option{}
	parser := flags.NewParser(opt, flags.Default)
	parser.Name = "zabbixgraph"
	parser.Usage = "[OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return opt, nil
}

func loadJobs(path string) ([]zabbixgraph.Request, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg.Jobs, nil
}

func main() {
	opt, err := parseCLI(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opt.Version {
		fmt.Printf("zabbixgraph, version: %s\n", version)
		return
	}

	if opt.Debug {
		logger.Level.Set(slog.LevelDebug)
	}

	jobs, err := loadJobs(opt.ConfigFile)
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
	if len(jobs) == 0 {
		logger.Error("no jobs configured")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	requests := make(chan zabbixgraph.Request)
	results := make(chan zabbixgraph.Response, len(jobs))

	svc := zabbixgraph.NewService(requests, results).WithMaxInFlight(opt.Concurrency)

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	for _, job := range jobs {
		select {
		case requests <- job:
		case <-ctx.Done():
		}
	}
	close(requests)
	<-done
	close(results)

	enc := json.NewEncoder(os.Stdout)
	failed := false
	for resp := range results {
		if resp.Error != "" {
			failed = true
		}
		if err := enc.Encode(resp); err != nil {
			logger.Error(err)
			os.Exit(1)
		}
	}

	if failed {
		os.Exit(1)
	}
}

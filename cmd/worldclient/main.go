package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/worldmirror/worldmirror/internal/bridge"
	"github.com/worldmirror/worldmirror/internal/client"
	"github.com/worldmirror/worldmirror/internal/config"
	"github.com/worldmirror/worldmirror/internal/core/observability/log"
	"github.com/worldmirror/worldmirror/internal/core/visual"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			fmt.Println("Error opening config:", err)
			os.Exit(1)
		}
		cfg, err = config.LoadYAML(f)
		_ = f.Close()
		if err != nil {
			fmt.Println("Error loading config:", err)
			os.Exit(1)
		}
	}

	logger := log.New(log.ParseLevel(cfg.LogLevel))

	cl, err := client.New(cfg, visual.NewNopRenderer(), visual.DescriptorFactory{}, logger)
	if err != nil {
		fmt.Println("Error building client:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Bridge.Transport != "" {
		var transport bridge.Transport
		switch cfg.Bridge.Transport {
		case "quic":
			transport, err = bridge.DialQUIC(ctx, cfg.Bridge.URL, nil)
		default:
			transport, err = bridge.DialWebsocket(cfg.Bridge.URL)
		}
		if err != nil {
			fmt.Println("Error dialing world server:", err)
			os.Exit(1)
		}
		cl.AttachBridge(bridge.New(transport, logger))
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-stopCh
		cancel()
	}()

	if err := cl.Run(ctx); err != nil {
		fmt.Println("Error running client:", err)
		os.Exit(1)
	}
}

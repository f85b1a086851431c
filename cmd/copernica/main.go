// Command copernica runs a single Copernica broker node: it loads a
// JSON config, opens the response cache, brings up one
// UDP/IPv4 link per configured peer plus the node's own listen
// socket, and runs the broker engine until interrupted.
//
// Argument parsing is stdlib flag, not an ecosystem CLI framework.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/copernica-icn/copernica/broker"
	"github.com/copernica-icn/copernica/cache"
	"github.com/copernica-icn/copernica/config"
	"github.com/copernica-icn/copernica/identity"
	"github.com/copernica-icn/copernica/links"
	"github.com/copernica-icn/copernica/metrics"
	"github.com/copernica-icn/copernica/packets"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
)

// topK bounds how many ranked links a request fans out to. Not yet exposed as a config field; revisit if operators need
// to tune it per deployment.
const topK = 3

func main() {
	configPath := flag.String("config", "", "path to node config JSON")
	flag.Parse()

	logger := log.NewLogger("copernica")

	if *configPath == "" {
		logger.Error("missing required -config flag")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("node exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger log.Logger) error {
	store, err := cache.Open(cfg.DataDir, cfg.ContentStoreSize)
	if err != nil {
		return fmt.Errorf("opening response cache: %w", err)
	}
	defer store.Close()

	reg := metrics.NewRegistry(prometheus.NewRegistry())
	engine := broker.NewEngine(
		cache.BrokerView{Store: store, ErrLogger: func(err error) {
			logger.Warn("cache write failed", "error", err)
		}},
		topK,
		broker.NewEngineMetrics(reg),
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	listenLink, err := bindLink(cfg.ListenAddr, engine, logger)
	if err != nil {
		return fmt.Errorf("binding listen link %s: %w", cfg.ListenAddr, err)
	}
	runLink(ctx, &wg, listenLink, errCh)

	for _, peer := range cfg.Peers {
		peerLink, err := bindLink("0.0.0.0:0", engine, logger)
		if err != nil {
			return fmt.Errorf("binding link for peer %s: %w", peer, err)
		}
		runLink(ctx, &wg, peerLink, errCh)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			select {
			case errCh <- fmt.Errorf("engine: %w", err):
			default:
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		logger.Error("component failed, shutting down", "error", err)
	}

	cancel()

	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown drain timed out, exiting anyway")
	}

	return nil
}

// bindLink opens a UDP/IPv4 link at addr, wires its router channels to
// engine, and registers it as both a classifier candidate and a
// forwarding egress.
func bindLink(addr string, engine *broker.Engine, logger log.Logger) (*links.UDPIPv4, error) {
	local, err := identity.NewPrivateIdentity()
	if err != nil {
		return nil, fmt.Errorf("generating link identity: %w", err)
	}
	linkID := packets.LinkID{Private: local}

	laddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", addr, err)
	}

	egress := make(chan links.InterLinkPacket, 256)
	link, err := links.NewUDPIPv4(linkID, laddr, links.RouterChannels{
		ToRouter:   engine.Inbound,
		FromRouter: egress,
	}, logger)
	if err != nil {
		return nil, err
	}

	engine.RegisterLink(linkID.Key(), egress)
	return link, nil
}

func runLink(ctx context.Context, wg *sync.WaitGroup, link *links.UDPIPv4, errCh chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := link.Run(ctx); err != nil && ctx.Err() == nil {
			select {
			case errCh <- fmt.Errorf("link %x: %w", link.ID().Key(), err):
			default:
			}
		}
	}()
}

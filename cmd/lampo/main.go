package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/lampo-ln/lampo/internal/config"
	"github.com/lampo-ln/lampo/pkg/monitor"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := cfg.NewLightningClient(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to create lightning client")
	}
	if closer, ok := svc.(io.Closer); ok {
		defer closer.Close()
	}

	info, err := svc.GetInfo(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to get node info")
	}
	log.Infof("connected to node at block height %d with %d addresses", info.BlockHeight, len(info.URIs))

	listener, err := svc.Listen(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to start invoice listener")
	}
	defer listener.Close()

	// settlements can be arbitrarily sparse, so stall detection stays off
	sup := monitor.New(monitor.WithStallThreshold(0))
	defer sup.Stop()

	sup.Go("settlement-loop", func(ctx context.Context, beat func()) error {
		for {
			invoice, err := listener.Receive(ctx)
			if err != nil {
				log.WithError(err).Info("invoice listener stopped")
				return err
			}
			beat()

			entry := log.WithField("invoice", invoice.ID)
			if invoice.AmountReceived != nil {
				entry = entry.WithField("received_msat", uint64(*invoice.AmountReceived))
			}
			entry.Info("invoice settled")
		}
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down...")
}

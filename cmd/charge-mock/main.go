package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/lampo-ln/lampo/internal/test/mockcharge"
)

const listenAddr = ":9112"

func main() {
	logrus.SetLevel(logrus.DebugLevel)

	srv := mockcharge.New(mockcharge.Config{
		ListenAddr: listenAddr,
		Token:      os.Getenv("CHARGE_MOCK_TOKEN"),
	})

	if err := srv.Start(); err != nil {
		logrus.Fatalf("failed to start: %v", err)
	}
	logrus.Infof("listening on %s", listenAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	logrus.Info("shutting down service...")
	if err := srv.Stop(); err != nil {
		logrus.WithError(err).Error("failed to stop server")
	}
	logrus.Exit(0)
}

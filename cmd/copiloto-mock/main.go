// Command copiloto-mock serves canned analysis, projection and plan responses
// so the client can run without the real backend.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/jask/copiloto/internal/mockserver"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("COPILOTO_MOCK_ADDR", ":8000"), "listen address")
	delay := flag.Duration("delay", 2*time.Second, "artificial latency per request")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	srv := mockserver.New(log)
	srv.Delay = *delay

	log.WithFields(logrus.Fields{"addr": *addr, "delay": delay.String()}).Info("mock backend listening")
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		log.WithError(err).Fatal("serve")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

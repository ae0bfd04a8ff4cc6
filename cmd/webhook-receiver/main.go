// Command webhook-receiver is a local sink for security webhooks. Point
// WEBHOOK_URL at it to watch lockout events during development.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/service"
	"github.com/rryowa/weq_api/internal/util"
)

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	flag.Parse()

	logger := util.NewZapLogger(&util.AppConfig{Name: "webhook-receiver", Env: util.EnvDev, LogLevel: "info"})

	http.Handle("/", newHandler(logger))

	logger.Infof("Webhook receiver listening on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

func newHandler(logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Only POST method is accepted", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Error reading request body", http.StatusInternalServerError)
			return
		}
		defer r.Body.Close()

		var event service.SecurityEvent
		if err := json.Unmarshal(body, &event); err != nil {
			http.Error(w, "Error parsing JSON", http.StatusBadRequest)
			return
		}

		logger.Infow("Received webhook",
			"event", event.Event,
			"client", event.ClientKey,
			"identifier", event.Identifier,
			"occurred_at", event.OccurredAt,
		)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Webhook received!"))
	}
}

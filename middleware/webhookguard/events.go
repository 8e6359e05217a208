package webhookguard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"webhook-gateway/middleware/webhookguard/domain"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// EventSource é o que o stream de eventos precisa (infra.EventHub implementa).
type EventSource interface {
	Subscribe(buffer int) (<-chan domain.StatsEvent, func())
}

type eventMessage struct {
	Type    string `json:"type"`
	Client  string `json:"client_ip"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Route   string `json:"route"`
	Method  string `json:"method"`
	At      string `json:"at"`
}

const eventWriteTimeout = 5 * time.Second

// EventsHandler abre um websocket e empurra cada decisão de segurança
// (bloqueio, payload inválido, rate limit) até o cliente desconectar.
func EventsHandler(src EventSource, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept error", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		events, cancel := src.Subscribe(64)
		defer cancel()

		// só escrevemos; CloseRead cuida de pings/close e cancela ctx quando o peer sai
		ctx := conn.CloseRead(r.Context())
		logger.Info("security event stream connected", zap.String("remote", r.RemoteAddr))

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case ev, ok := <-events:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "stream closed")
					return
				}
				if err := writeEvent(ctx, conn, ev); err != nil {
					logger.Info("security event stream disconnected", zap.Error(err))
					return
				}
			}
		}
	})
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev domain.StatsEvent) error {
	data, err := json.Marshal(eventMessage{
		Type:    "security_event",
		Client:  string(ev.Key),
		Outcome: string(ev.Outcome),
		Reason:  string(ev.Reason),
		Route:   string(ev.Route),
		Method:  ev.Method,
		At:      ev.At.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webhook-gateway/middleware/webhookguard"
	"webhook-gateway/middleware/webhookguard/infra"

	"go.uber.org/zap"
)

func main() {
	// Exemplo: middleware direto na aplicação que consome os updates (sem proxy)
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := infra.NewMemoryClientStore()
	store.StartJanitor(ctx, 10*time.Minute)

	stats := infra.NewMemoryStatsStore()
	guard, err := webhookguard.New(webhookguard.Options{
		Store:              store,
		Stats:              stats,
		TrustXForwardedFor: true,
		Logger:             logger.Named("guard"),
	})
	if err != nil {
		logger.Fatal("guard init", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("POST "+webhookguard.DefaultWebhookPath+"{token}", updateHandler(logger))
	mux.Handle("GET /admin/security-stats", webhookguard.StatsHandler(guard, stats))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	h := http.Handler(mux)
	h = webhookguard.InflightMiddleware(webhookguard.InflightOptions{Pool: infra.NewChanPool(50)})(h)
	h = guard.Wrap(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

// update é o mínimo que a aplicação lê de um update já validado pelo guard.
type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message,omitempty"`
	CallbackQuery *struct {
		Data string `json:"data"`
	} `json:"callback_query,omitempty"`
}

func updateHandler(logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var u update
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			logger.Error("decode update", zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		switch {
		case u.Message != nil:
			logger.Info("message update", zap.Int64("update_id", u.UpdateID), zap.Int64("chat_id", u.Message.Chat.ID))
		case u.CallbackQuery != nil:
			logger.Info("callback update", zap.Int64("update_id", u.UpdateID), zap.String("data", u.CallbackQuery.Data))
		default:
			logger.Info("other update", zap.Int64("update_id", u.UpdateID))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

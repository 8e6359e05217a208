package main

import (
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Upstream "burro" para validar o gateway na mão: aceita qualquer webhook e
// loga o que chegou.
func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	http.HandleFunc("/telegram/webhook/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		logger.Info("webhook recebido",
			zap.String("path", r.URL.Path),
			zap.String("x_forwarded_for", r.Header.Get("X-Forwarded-For")),
			zap.Int("bytes", len(body)),
		)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	http.HandleFunc("/showTela", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<h1>Tela do Sistema</h1><p>Requisição recebida com sucesso!</p>")
		logger.Info("alguém acessou /showTela")
	})

	logger.Info("servidor rodando", zap.String("addr", "http://localhost:8081"))
	if err := http.ListenAndServe(":8081", nil); err != nil {
		logger.Fatal("erro ao subir o servidor", zap.Error(err))
	}
}

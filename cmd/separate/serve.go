package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neurlang/gosep/audio"
	"github.com/neurlang/gosep/separate"
)

const maxUpload = 64 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve separations over HTTP",
	Long: `Serve separations over HTTP.

Endpoints:
  POST /separate/{method}   multipart form with the audio in field "file"
  GET  /healthz

The response is JSON: {"id", "method", "sample_rate", "sources": [[...], ...]}.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}
		sep, err := separate.New(cfg, separate.WithLogger(logger))
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           newHandler(sep, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-cmd.Context().Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()

		logger.Info("listening", zap.String("addr", cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides config)")
}

type errorResponse struct {
	Error string `json:"error"`
}

func newHandler(sep *separate.Separator, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /separate/{method}", func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		log := logger.With(zap.String("http_request_id", reqID))
		w.Header().Set("X-Request-Id", reqID)

		method, err := separate.ParseMethod(r.PathValue("method"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, errorResponse{err.Error()})
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
			return
		}
		defer file.Close()

		// any decode failure is a bad upload
		sig, err := audio.Decode(file, audio.Format(header.Filename))
		if err != nil {
			log.Warn("upload rejected", zap.String("filename", header.Filename), zap.Error(err))
			writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
			return
		}

		res, err := sep.SeparateSignal(r.Context(), method, sig)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

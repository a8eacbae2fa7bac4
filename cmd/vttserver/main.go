// Command vttserver is the authoritative VTT server: it loads config via
// viper (following niceyeti-tabular's reinforcement/learning.go FromYaml
// pattern — viper.New, SetConfigFile/SetConfigType/AddConfigPath,
// ReadInConfig, Unmarshal — rather than viper's global singleton), opens
// the YAML-backed store, starts servercore's debounce sweep, and serves
// both a REST shim (gorilla/mux, for character list/load/delete) and
// a websocket endpoint (protocol.Upgrade) for table replication.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/viper"

	"github.com/prtfnx-vtt/vttcore/characters"
	"github.com/prtfnx-vtt/vttcore/geom"
	"github.com/prtfnx-vtt/vttcore/protocol"
	"github.com/prtfnx-vtt/vttcore/servercore"
	"github.com/prtfnx-vtt/vttcore/store"
)

// Config is the server's top-level configuration, loaded from a YAML file.
type Config struct {
	Addr         string `mapstructure:"addr"`
	DataDir      string `mapstructure:"data_dir"`
	DebounceSecs float64 `mapstructure:"debounce_seconds"`
}

func defaultConfig() Config {
	return Config{Addr: ":8080", DataDir: "./data", DebounceSecs: 2.0}
}

// loadConfig reads path via viper if it exists, falling back to defaults
// for any field the file doesn't set.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	vp := viper.New()
	vp.SetConfigFile(filepath.Base(path))
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("vttserver: read config: %w", err)
	}
	if err := vp.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("vttserver: unmarshal config: %w", err)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	yamlStore, err := store.NewYAMLStore(cfg.DataDir)
	if err != nil {
		logger.Error("store init failed", "err", err)
		os.Exit(1)
	}

	hub := protocol.NewHub(logger)
	core := servercore.NewCore(yamlStore, hub, time.Duration(cfg.DebounceSecs*float64(time.Second)), logger)
	charStore := characters.NewStore(yamlStore, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	router := mux.NewRouter()
	router.HandleFunc("/ws", wsHandler(core, hub, logger)).Methods(http.MethodGet)
	router.HandleFunc("/api/characters/{session_id}/{owner_id}", listCharactersHandler(charStore)).Methods(http.MethodGet)
	router.HandleFunc("/api/characters/{character_id}", loadCharacterHandler(charStore)).Methods(http.MethodGet)
	router.HandleFunc("/api/characters/{character_id}", deleteCharacterHandler(charStore)).Methods(http.MethodDelete)

	srv := &http.Server{Addr: cfg.Addr, Handler: router}

	go func() {
		logger.Info("vttserver listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down, flushing dirty tables")
	core.Flush()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}

func wsHandler(core *servercore.Core, hub *protocol.Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		username := r.URL.Query().Get("username")
		sessionCode := r.URL.Query().Get("session_code")

		dispatcher := protocol.NewDispatcher(logger)
		dispatcher.Register(protocol.SpriteMove, func(data json.RawMessage) error {
			var payload struct {
				TableID  string  `json:"table_id"`
				SpriteID string  `json:"sprite_id"`
				X        float64 `json:"x"`
				Y        float64 `json:"y"`
			}
			if err := json.Unmarshal(data, &payload); err != nil {
				return err
			}
			core.ApplyMoveSprite(payload.TableID, payload.SpriteID, geom.Vec2{X: payload.X, Y: payload.Y}, nil)
			return nil
		})

		err := protocol.Upgrade(w, r, userID, username, sessionCode, func(env protocol.Envelope) {
			if err := dispatcher.Dispatch(env); err != nil {
				logger.Error("dispatch failed", "type", env.Type, "err", err)
			}
		}, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "err", err)
		}
	}
}

func listCharactersHandler(store *characters.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		list := store.ListCharacters(vars["session_id"], vars["owner_id"])
		json.NewEncoder(w).Encode(list)
	}
}

func loadCharacterHandler(store *characters.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		result := store.LoadCharacter(vars["character_id"])
		if !result.Success {
			http.Error(w, result.Message, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(result.Data)
	}
}

func deleteCharacterHandler(store *characters.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		userID := r.URL.Query().Get("user_id")
		result := store.DeleteCharacter(vars["character_id"], userID)
		if !result.Success {
			status := http.StatusBadRequest
			if result.Err != nil && result.Err.Kind == "permission_denied" {
				status = http.StatusForbidden
			}
			http.Error(w, result.Message, status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

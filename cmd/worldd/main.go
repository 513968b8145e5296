package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dm-vev/chunkengine/server"
	"github.com/dm-vev/chunkengine/server/cmd/builtin"
	"github.com/dm-vev/chunkengine/server/console"
	"github.com/pelletier/go-toml"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(log)

	conf, err := readConfig(log, "config.toml")
	if err != nil {
		log.Error("read config: " + err.Error())
		os.Exit(1)
	}
	srv, err := conf.New()
	if err != nil {
		log.Error("start server: " + err.Error())
		os.Exit(1)
	}
	builtin.Register(srv)
	log.Info("Server started.", "name", conf.Name, "spawn", conf.World.Spawn, "forced", srv.ForcedChunks().Len())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-ctx.Done():
		case <-srv.Closed():
			stop()
		}
	}()
	go console.New(log).Run(ctx)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("run server: " + err.Error())
	}
	log.Info("Saving world and stopping server...")
	if err := srv.Close(); err != nil {
		log.Error("close server: " + err.Error())
		os.Exit(1)
	}
}

// readConfig reads the configuration from the file at the path passed. If the
// file does not exist, it is created with the default configuration.
func readConfig(log *slog.Logger, path string) (server.Config, error) {
	c := server.DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return server.Config{}, fmt.Errorf("encode default config: %v", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return server.Config{}, fmt.Errorf("create default config: %v", err)
		}
		return c.Config(log)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return server.Config{}, fmt.Errorf("read config: %v", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return server.Config{}, fmt.Errorf("decode config: %v", err)
	}
	return c.Config(log)
}

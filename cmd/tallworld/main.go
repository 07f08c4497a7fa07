package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/tallworld/tallworld/server"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(log)

	conf, err := readConfig(log)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	srv := conf.New()
	log.Info("Server running.", "world", srv.World().Name())
	<-srv.CloseOnProgramEnd()
}

// readConfig reads the configuration from the config.toml file, or creates the
// file if it does not yet exist.
func readConfig(log *slog.Logger) (server.Config, error) {
	c := server.DefaultConfig()
	if _, err := os.Stat("config.toml"); os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return server.Config{}, fmt.Errorf("encode default config: %v", err)
		}
		if err := os.WriteFile("config.toml", data, 0644); err != nil {
			return server.Config{}, fmt.Errorf("create default config: %v", err)
		}
		return c.Config(log)
	}
	data, err := os.ReadFile("config.toml")
	if err != nil {
		return server.Config{}, fmt.Errorf("read config: %v", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return server.Config{}, fmt.Errorf("decode config: %v", err)
	}
	return c.Config(log)
}

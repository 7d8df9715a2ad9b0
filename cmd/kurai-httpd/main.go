package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"

	"github.com/nczempin/kurai-httpd/protocol"
	"github.com/nczempin/kurai-httpd/server"
	"github.com/nczempin/kurai-httpd/transport"
)

func main() {
	cfg := server.DefaultConfig()

	port := flag.Int("port", cfg.Port, "TCP port to listen on")
	engine := flag.String("engine", cfg.Engine.String(), "connection I/O engine: syscall, iouring or gouring")
	readMode := flag.String("read-mode", cfg.ReadMode.String(), "request read mode: complete or single")
	level := flag.String("log-level", zerolog.InfoLevel.String(), "log level")
	flag.Parse()

	log := cfg.Logger

	lvl, err := zerolog.ParseLevel(*level)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(lvl)

	cfg.Port = *port
	if cfg.Engine, err = transport.ParseEngineKind(*engine); err != nil {
		log.Fatal().Err(err).Msg("invalid engine")
	}
	if cfg.ReadMode, err = protocol.ParseReadMode(*readMode); err != nil {
		log.Fatal().Err(err).Msg("invalid read mode")
	}

	srv, err := server.Listen(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("server setup failed")
	}

	if err := srv.Serve(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

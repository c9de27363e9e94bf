package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"ircd/irc/config"
	"ircd/irc/server"
)

func main() {
	// Define command-line flags
	configPath := flag.String("config", "", "Path to config file (.yaml, .toml or .json)")
	ircAddr := flag.String("irc", "", "IRC server bind address (overrides config)")
	botsAddr := flag.String("bots", "", "Bot API bind address (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *ircAddr != "" {
		host, port, err := config.SplitListenAddress(*ircAddr)
		if err != nil {
			log.Fatalf("Invalid IRC bind address: %v", err)
		}
		cfg.Server.Host, cfg.Server.Port = host, port
	}
	if *botsAddr != "" {
		host, port, err := config.SplitListenAddress(*botsAddr)
		if err != nil {
			log.Fatalf("Invalid bot API bind address: %v", err)
		}
		cfg.Bots.Host, cfg.Bots.Port = host, port
	}
	if *debug {
		cfg.Debug = true
	}

	// Log startup configuration
	log.Printf("Starting IRC server with the following configuration:")
	log.Printf("Server name: %s", cfg.Server.Name)
	log.Printf("IRC bind address: %s", cfg.ListenAddress())
	log.Printf("Bot API enabled: %v", cfg.Bots.Enabled)
	if cfg.Bots.Enabled {
		log.Printf("Bot API bind address: %s", cfg.BotAPIListenAddress())
	}
	log.Printf("Debug logging: %v", cfg.Debug)

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	log.Println("Starting IRC server...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Println("IRC server started successfully!")

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Println("Server is running. Press Ctrl+C to stop.")
	<-sigChan
	log.Println("Shutdown signal received, stopping server...")

	if err := srv.Stop(); err != nil {
		log.Printf("Error stopping server: %v", err)
	}

	log.Println("Server stopped. Goodbye!")
}

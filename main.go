package main

import (
	"os"

	"activation_server/config"

	"github.com/alasgarovnamig/confhandler"
	"github.com/gofiber/fiber/v2/log"
)

func main() {
	var configPath string
	env := os.Getenv("CONFIG_PATH")
	if env == "" {
		configPath = "./resources/application.yaml"
	} else {
		configPath = env
	}

	defer func() {
		if r := recover(); r != nil {
			os.Exit(1)
		}
	}()

	log.Info("Loading configuration...")
	err := confhandler.LoadConfigToStruct(configPath, &config.Conf)
	if err != nil {
		log.Panic("Error loading configuration file")
	}
	config.ApplyDefaults(&config.Conf)
	config.InitLogger()
	log.Info("Configuration loaded successfully")

	log.Info("Starting server...")
	s := new(service)
	s.Start()
}

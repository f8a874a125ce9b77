package main

import (
	"log"

	"github.com/jaennil/slippymap/internal/app"
	"github.com/jaennil/slippymap/pkg/config"
)

func main() {
	realMain()
}

func realMain() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalln("failed to load config: ", err)
	}

	app.Run(cfg)
}

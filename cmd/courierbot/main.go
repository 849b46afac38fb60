package main

import (
	"context"
	"log"

	"github.com/routedesk/courierbot/core/bootstrap"
	corecmd "github.com/routedesk/courierbot/core/cmd"
	coreconfig "github.com/routedesk/courierbot/core/config"
	"github.com/routedesk/courierbot/courier/bot"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        coreconfig.Load,
		Bootstrap: func(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
			res, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			return bot.New(cfg, res), nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}

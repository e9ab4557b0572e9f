package main

import (
	"github.com/showtix/auth_service/config"
	"github.com/showtix/auth_service/internal/api"
)

func main() {
	cfg := config.LoadConfig()
	api.StartServer(cfg)
}

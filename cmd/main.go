package main

import (
	"github.com/unihub/notify-svc/internal/app"
	"github.com/unihub/notify-svc/internal/config"
)

func main() {
	cfg := config.MustInit()
	app.MustNewApp(cfg).Run()
}

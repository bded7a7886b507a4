package main

import (
	"github.com/weftwear/oms/internal/app"
	"github.com/weftwear/oms/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}

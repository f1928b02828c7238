package main

import (
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"voicefront/internal/logging"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	if err := logging.Initialize(); err != nil {
		log.Printf("logging setup failed: %v", err)
	}
	defer logging.Close()

	app := NewApp()
	err := wails.Run(&options.App{
		Title:     "voicefront",
		Width:     800,
		Height:    600,
		MinWidth:  320,
		MinHeight: 320,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 0, G: 0, B: 0, A: 255},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		logging.Sugar.Fatalf("wails run failed: %v", err)
	}
}

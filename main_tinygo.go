//go:build tinygo && baremetal

package main

import (
	"time"

	"slate/app"
	"slate/console"
	"slate/hal"
	"slate/kernel"
)

func main() {
	app.Run(hal.New(hal.Options{
		Width:      console.Width,
		Height:     console.Height,
		TickPeriod: time.Second / kernel.DefaultTickHz,
	}), app.DefaultConfig())
}

// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/devshell/runner.go
// Summary: Runs a single texel.App full screen on a local tcell screen.

package devshell

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/texelmem/apps/memview"
	"github.com/framegrace/texelmem/memory"
	"github.com/framegrace/texelmem/source"
	"github.com/framegrace/texelmem/texel"
)

// Builder constructs a texel.App, optionally using CLI args.
type Builder func(args []string) (texel.App, error)

var registry = map[string]Builder{
	"memview": func(args []string) (texel.App, error) {
		cfg := memory.DefaultViewConfig()
		if len(args) > 0 {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return nil, err
			}
			return memview.New(args[0], source.NewStatic(args[0], 0, data, 1), cfg)
		}
		return memview.New("demo", source.NewDemo(), cfg)
	},
}

var screenFactory = tcell.NewScreen

// SetScreenFactory overrides the screen factory used by Run. Passing nil restores the default.
func SetScreenFactory(factory func() (tcell.Screen, error)) {
	if factory == nil {
		screenFactory = tcell.NewScreen
		return
	}
	screenFactory = factory
}

// Run builds an app and executes it inside a local tcell screen.
func Run(builder Builder, args []string) error {
	app, err := builder(args)
	if err != nil {
		return err
	}
	if c, ok := app.(interface{ Close() }); ok {
		defer c.Close()
	}
	return RunApp(app)
}

// RunApp executes app inside a local tcell screen until Ctrl-C or until
// the app's Run loop returns.
func RunApp(app texel.App) error {
	screen, err := screenFactory()
	if err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("screen init: %w", err)
	}
	defer screen.Fini()
	screen.Clear()
	screen.EnableMouse()
	defer screen.DisableMouse()
	screen.EnablePaste()

	width, height := screen.Size()
	app.Resize(width, height)
	refreshCh := make(chan bool, 1)
	app.SetRefreshNotifier(refreshCh)

	draw := func() {
		screen.Clear()
		buffer := app.Render()
		for y, row := range buffer {
			for x, cell := range row {
				screen.SetContent(x, y, cell.Ch, nil, cell.Style)
			}
		}
		screen.Show()
	}

	draw()

	var lifecycle texel.LocalAppLifecycle
	runErr := make(chan error, 1)
	lifecycle.StartApp(app, runErr)
	defer func() {
		lifecycle.StopApp(app)
		lifecycle.Wait()
	}()

	stopForward := make(chan struct{})
	defer close(stopForward)
	go func() {
		for {
			select {
			case <-stopForward:
				return
			case <-refreshCh:
				screen.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	var pasteBuffer []byte
	var inPaste bool

	for {
		select {
		case err := <-runErr:
			return err
		default:
		}

		ev := screen.PollEvent()
		if ev == nil {
			return nil
		}
		switch tev := ev.(type) {
		case *tcell.EventInterrupt:
			if d, ok := app.(texel.Drainer); ok {
				d.Drain()
			}
			draw()
		case *tcell.EventResize:
			w, h := tev.Size()
			app.Resize(w, h)
			draw()
		case *tcell.EventPaste:
			if tev.Start() {
				inPaste = true
				pasteBuffer = nil
			} else if tev.End() {
				inPaste = false
				if ph, ok := app.(texel.PasteHandler); ok && len(pasteBuffer) > 0 {
					ph.HandlePaste(pasteBuffer)
					draw()
				}
				pasteBuffer = nil
			}
		case *tcell.EventKey:
			if tev.Key() == tcell.KeyCtrlC {
				return nil
			}
			if inPaste {
				if tev.Key() == tcell.KeyRune {
					pasteBuffer = append(pasteBuffer, []byte(string(tev.Rune()))...)
				} else if tev.Key() == tcell.KeyEnter || tev.Key() == 10 {
					pasteBuffer = append(pasteBuffer, '\n')
				}
			} else {
				app.HandleKey(tev)
				draw()
			}
		case *tcell.EventMouse:
			if mh, ok := app.(texel.MouseHandler); ok {
				mh.HandleMouse(tev)
				draw()
			}
		}
	}
}

// RunNamed finds a registered builder by name and runs it.
func RunNamed(name string, args []string) error {
	buildApp, ok := registry[name]
	if !ok {
		return fmt.Errorf("unknown app %q", name)
	}
	return Run(buildApp, args)
}

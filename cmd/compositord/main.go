// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command compositord runs the compositor on synthetic windows.
//
// By default it paints a few frames on headless outputs and saves what the
// first output shows as a PNG. With -tty it previews the outputs on the
// terminal until q is pressed; o toggles the desktop overview. With
// -watch it keeps running and reloads the configuration file on change.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/arena"
	"github.com/gogpu/compositor/backend"
	_ "github.com/gogpu/compositor/backend/gpu"
	_ "github.com/gogpu/compositor/backend/software"
	"github.com/gogpu/compositor/backend/tty"
	"github.com/gogpu/compositor/config"
	"github.com/gogpu/compositor/effect"
	"github.com/gogpu/compositor/effects/overview"
	"github.com/gogpu/compositor/output"
	"github.com/gogpu/compositor/scene"
)

func main() {
	var (
		configPath  = flag.String("config", "", "configuration file (TOML)")
		backendName = flag.String("backend", "", "backend name, overrides the configuration")
		frames      = flag.Int("frames", 4, "frames to paint in headless mode")
		out         = flag.String("out", "compositor.png", "PNG file for the first output")
		terminal    = flag.Bool("tty", false, "preview on the terminal")
		watch       = flag.Bool("watch", false, "keep running and reload the configuration on change")
		verbose     = flag.Bool("v", false, "log debug messages")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	compositor.SetLogger(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("compositord: %v", err)
		}
	}
	if len(cfg.Outputs) == 0 {
		cfg.Outputs = []config.Output{{Name: "HEADLESS-1", Width: 640, Height: 360}}
	}
	if *backendName != "" {
		cfg.Backend = *backendName
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if *terminal {
		err = runTerminal(ctx, cfg, *configPath)
	} else {
		err = runHeadless(ctx, cfg, *frames, *out, *watch, *configPath)
	}
	if err != nil {
		log.Fatalf("compositord: %v", err)
	}
}

// screens records the headless connector of every output by name.
type screens struct {
	mu    sync.Mutex
	conns map[string]*backend.HeadlessConnector
}

func (s *screens) connector(o *output.Output) (backend.Connector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn := backend.NewHeadlessConnector(o.Name(), image.Point{})
	s.conns[o.Name()] = conn
	return conn, nil
}

func (s *screens) get(name string) (*backend.HeadlessConnector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.conns[name]
	return conn, ok
}

func runHeadless(ctx context.Context, cfg *config.Config, frames int, out string, watch bool, configPath string) error {
	s := &screens{conns: make(map[string]*backend.HeadlessConnector)}
	c, err := compositor.New(nil,
		compositor.WithBackendOptions(backend.Options{Connectors: s.connector}),
		compositor.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer c.Close()

	d := populate(c)
	for i := 0; i < frames && ctx.Err() == nil; i++ {
		n := c.Tick(ctx)
		slog.Debug("tick", "frame", i, "presented", n)
		d.step(c)
	}

	if watch {
		if err := c.Run(ctx, configPath); err != nil {
			return err
		}
	}

	first := cfg.Outputs[0].Name
	conn, ok := s.get(first)
	if !ok {
		return fmt.Errorf("output %s never presented", first)
	}
	if err := savePNG(out, conn.Screen()); err != nil {
		return err
	}
	log.Printf("%s saved to %s after %d frames", first, out, c.Scheduler().Frames())
	return nil
}

func runTerminal(ctx context.Context, cfg *config.Config, configPath string) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	b := tty.New(screen, tty.Options{}, backend.Options{
		Buffers:          cfg.SwapchainDepth,
		DisableBufferAge: !cfg.BufferAge,
	})
	ov := overview.New()
	c, err := compositor.New(b, compositor.WithConfig(cfg), compositor.WithEffect(ov, 10))
	if err != nil {
		return err
	}
	defer c.Close()
	populate(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(ctx, configPath)
	})
	g.Go(func() error {
		for {
			var key *tcell.EventKey
			switch ev := screen.PollEvent().(type) {
			case nil, *tcell.EventInterrupt:
				return nil
			case *tcell.EventKey:
				key = ev
			default:
				continue
			}
			kev, quit := translateKey(key)
			if quit {
				cancel()
				return nil
			}
			c.Post(func() {
				if c.DeliverKey(kev) {
					return
				}
				if kev.Rune == 'o' {
					if err := ov.Toggle(); err != nil {
						slog.Warn("overview unavailable", "err", err)
					}
				}
			})
		}
	})
	go func() {
		<-ctx.Done()
		// Unblocks PollEvent.
		_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()
	return g.Wait()
}

// translateKey maps a terminal key to an effect key event. Ctrl-C and a
// bare q quit.
func translateKey(ev *tcell.EventKey) (effect.KeyEvent, bool) {
	kev := effect.KeyEvent{Pressed: true}
	switch ev.Key() {
	case tcell.KeyCtrlC:
		return kev, true
	case tcell.KeyEscape:
		kev.Key = effect.KeyEscape
	case tcell.KeyEnter:
		kev.Key = effect.KeyEnter
	case tcell.KeyLeft:
		kev.Key = effect.KeyLeft
	case tcell.KeyRight:
		kev.Key = effect.KeyRight
	case tcell.KeyUp:
		kev.Key = effect.KeyUp
	case tcell.KeyDown:
		kev.Key = effect.KeyDown
	case tcell.KeyTab:
		kev.Key = effect.KeyTab
	case tcell.KeyRune:
		kev.Rune = ev.Rune()
		if kev.Rune == 'q' {
			return kev, true
		}
	}
	return kev, false
}

// demo is the set of synthetic windows.
type demo struct {
	mover  arena.Handle
	client *scene.ImageClient
	dx     int
}

// populate adds a few windows spread over the desktops.
func populate(c *compositor.Compositor) *demo {
	geom := image.Rect(0, 0, 640, 360)
	if outs := c.Outputs().All(); len(outs) > 0 {
		geom = outs[0].Geometry()
	}
	w, h := geom.Dx(), geom.Dy()
	at := func(x0, y0, x1, y1 int) image.Rectangle {
		return image.Rect(geom.Min.X+x0*w/16, geom.Min.Y+y0*h/9, geom.Min.X+x1*w/16, geom.Min.Y+y1*h/9)
	}

	editor := scene.NewImageClient("editor", at(1, 1, 9, 8), color.RGBA{R: 0x28, G: 0x2c, B: 0x34, A: 0xff})
	editor.Fill(image.Rect(0, 0, editor.Geometry().Dx(), h/18), color.RGBA{R: 0x3d, G: 0xae, B: 0xe9, A: 0xff})
	c.AddWindow(editor)

	term := scene.NewImageClient("terminal", at(7, 3, 15, 8), color.RGBA{A: 0xff})
	term.Fill(image.Rect(0, 0, term.Geometry().Dx(), h/18), color.RGBA{R: 0x8a, G: 0xe2, B: 0x34, A: 0xff})
	term.SetActive(true)
	if err := c.Scene().Activate(c.AddWindow(term)); err != nil {
		slog.Warn("activate failed", "err", err)
	}

	glass := scene.NewImageClient("glass", at(3, 5, 8, 8), color.RGBA{R: 0x80, G: 0x20, B: 0x20, A: 0x80})
	glass.SetOpacity(0.8)
	mover := c.AddWindow(glass)

	if c.Scene().Desktops() > 1 {
		other := scene.NewImageClient("mail", at(2, 2, 14, 7), color.RGBA{R: 0xf5, G: 0x79, B: 0x00, A: 0xff})
		other.SetDesktop(2)
		c.AddWindow(other)
	}
	return &demo{mover: mover, client: glass, dx: max(w/32, 1)}
}

// step slides the translucent window to the right.
func (d *demo) step(c *compositor.Compositor) {
	old := d.client.Geometry()
	d.client.SetGeometry(old.Add(image.Pt(d.dx, 0)))
	if err := c.Scene().GeometryChanged(d.mover, old); err != nil {
		slog.Warn("move failed", "err", err)
	}
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

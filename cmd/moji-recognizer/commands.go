package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/menta2k/moji-recognizer/pkg/session"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

var errUsage = errors.New("wrong number of arguments")

func parseCoords(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, errUsage
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", a)
		}
		out[i] = v
	}
	return out, nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func downCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "down",
		Help: "press the pointer: down <x> <y>",
		Func: func(c *ishell.Context) {
			p, err := parseCoords(c.Args, 2)
			if err != nil {
				c.Err(err)
				return
			}
			ctx.session.PointerDown(p[0], p[1])
		},
	}
}

func moveCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "move",
		Help: "drag the pointer: move <x> <y>",
		Func: func(c *ishell.Context) {
			p, err := parseCoords(c.Args, 2)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ctx.session.PointerMove(p[0], p[1]); err != nil {
				c.Err(err)
			}
		},
	}
}

func upCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "up",
		Help: "release the pointer: up <x> <y>",
		Func: func(c *ishell.Context) {
			p, err := parseCoords(c.Args, 2)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ctx.session.PointerUp(ctx.ctx, p[0], p[1]); err != nil {
				c.Err(err)
			}
		},
	}
}

func lineCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "line",
		Help: "draw a stroke through points: line <x1> <y1> <x2> <y2> [<x> <y>...]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 4 || len(c.Args)%2 != 0 {
				c.Err(errUsage)
				return
			}
			p, err := parseCoords(c.Args, len(c.Args))
			if err != nil {
				c.Err(err)
				return
			}

			s := ctx.session
			s.PointerDown(p[0], p[1])
			last := len(p) - 2
			for i := 2; i < last; i += 2 {
				if err := s.PointerMove(p[i], p[i+1]); err != nil {
					c.Err(err)
					return
				}
			}
			if err := s.PointerMove(p[last], p[last+1]); err != nil {
				c.Err(err)
				return
			}
			if err := s.PointerUp(ctx.ctx, p[last], p[last+1]); err != nil {
				c.Err(err)
			}
		},
	}
}

func recognizeCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    "recognize",
		Aliases: []string{"r"},
		Help:    "classify the canvas",
		Func: func(c *ishell.Context) {
			ctx.session.Wait()
			ctx.session.Recognize(ctx.ctx)
		},
	}
}

func undoCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "undo",
		Help: "remove the last stroke",
		Func: func(c *ishell.Context) {
			if !ctx.session.Undo() {
				c.Println("nothing to undo")
			}
		},
	}
}

func redoCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "redo",
		Help: "restore the last undone stroke",
		Func: func(c *ishell.Context) {
			if !ctx.session.Redo() {
				c.Println("nothing to redo")
			}
		},
	}
}

func clearCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "clear",
		Help: "erase the canvas",
		Func: func(c *ishell.Context) {
			ctx.session.Clear()
		},
	}
}

func brushCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "brush",
		Help: fmt.Sprintf("show or set the brush width (%d-%d)", session.MinBrushWidth, session.MaxBrushWidth),
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Println("brush", ctx.session.BrushWidth())
				return
			}
			w, err := strconv.Atoi(c.Args[0])
			if err != nil {
				c.Err(fmt.Errorf("invalid width %q", c.Args[0]))
				return
			}
			if err := ctx.session.SetBrushWidth(w); err != nil {
				c.Err(err)
			}
		},
	}
}

func familyCompleter([]string) []string {
	var out []string
	for _, f := range types.Families() {
		out = append(out, string(f))
	}
	return out
}

func modeCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "mode",
		Help:      "show or select the script family",
		Completer: familyCompleter,
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Println("mode", ctx.session.Family())
				return
			}
			family, err := types.ParseFamily(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if err := ctx.session.SelectMode(family); err != nil {
				c.Err(err)
				return
			}
			c.SetPrompt(ctx.prompt())
		},
	}
}

func langCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "lang",
		Help: "show or select the label language (en|ja)",
		Completer: func([]string) []string {
			return []string{string(types.English), string(types.Japanese)}
		},
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Println("lang", ctx.session.Language())
				return
			}
			lang, err := types.ParseLanguage(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if err := ctx.session.SelectLanguage(lang); err != nil {
				c.Err(err)
				return
			}
			c.SetPrompt(ctx.prompt())
		},
	}
}

func autoCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "auto",
		Help: "show or toggle recognition after each stroke (on|off)",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Println("auto", onOff(ctx.session.AutoRecognize()))
				return
			}
			on, err := parseSwitch(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			ctx.session.SetAutoRecognize(on)
		},
	}
}

func loadCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "load",
		Help: "classify an image file in the current mode: load <path>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errUsage)
				return
			}
			o, err := ctx.rec.RecognizeFile(ctx.ctx, c.Args[0], ctx.session.Family(), ctx.session.Language())
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(formatOutcome(o))
		},
	}
}

func statusCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "status",
		Help: "show the session state",
		Func: func(c *ishell.Context) {
			s := ctx.session
			c.Printf("mode %s, lang %s, brush %d, auto %s\n", s.Family(), s.Language(), s.BrushWidth(), onOff(s.AutoRecognize()))
			c.Printf("strokes %d, undo %t, redo %t, drawing %t\n", len(s.Strokes()), s.CanUndo(), s.CanRedo(), s.Drawing())

			st := ctx.rec.Engine().Stats()
			c.Printf("requests ran %d, superseded %d, waiting %d\n", st.Ran, st.Superseded, st.Waiting)
		},
	}
}

func familiesCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "families",
		Help: "list script families and their availability",
		Func: func(c *ishell.Context) {
			for _, f := range types.Families() {
				if err := ctx.rec.Available(f); err != nil {
					c.Printf("%-10s unavailable: %v\n", f, err)
					continue
				}
				c.Printf("%-10s ready\n", f)
			}
		},
	}
}

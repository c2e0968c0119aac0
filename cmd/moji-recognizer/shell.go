package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/abiosoft/ishell"

	mojirecognizer "github.com/menta2k/moji-recognizer"
	"github.com/menta2k/moji-recognizer/pkg/session"
)

// ShellCtxt is the state shared by the shell commands
type ShellCtxt struct {
	ctx     context.Context
	rec     *mojirecognizer.Recognizer
	session *session.Session
}

func (ctx *ShellCtxt) prompt() string {
	return fmt.Sprintf("[%s/%s]> ", ctx.session.Family(), ctx.session.Language())
}

func newShell(ctx *ShellCtxt) *ishell.Shell {
	shell := ishell.New()
	shell.SetPrompt(ctx.prompt())

	shell.AddCmd(downCmd(ctx))
	shell.AddCmd(moveCmd(ctx))
	shell.AddCmd(upCmd(ctx))
	shell.AddCmd(lineCmd(ctx))
	shell.AddCmd(recognizeCmd(ctx))
	shell.AddCmd(undoCmd(ctx))
	shell.AddCmd(redoCmd(ctx))
	shell.AddCmd(clearCmd(ctx))
	shell.AddCmd(brushCmd(ctx))
	shell.AddCmd(modeCmd(ctx))
	shell.AddCmd(langCmd(ctx))
	shell.AddCmd(autoCmd(ctx))
	shell.AddCmd(loadCmd(ctx))
	shell.AddCmd(statusCmd(ctx))
	shell.AddCmd(familiesCmd(ctx))

	return shell
}

// runShell executes a script, a single command given on the command line,
// or an interactive session, in that order of preference
func runShell(ctx context.Context, rec *mojirecognizer.Recognizer, s *session.Session, script string, args []string) error {
	sctx := &ShellCtxt{ctx: ctx, rec: rec, session: s}
	shell := newShell(sctx)
	defer s.Wait()

	if script != "" {
		return runScript(shell, script)
	}
	if len(args) > 0 {
		return shell.Process(args...)
	}

	shell.Println("moji-recognizer", mojirecognizer.GetVersion(), "- type help for commands")
	shell.Run()
	return nil
}

func runScript(shell *ishell.Shell, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := shell.Process(strings.Fields(line)...); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
	}
	return scanner.Err()
}

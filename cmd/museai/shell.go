package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mhpenta/museai"
	"github.com/mhpenta/museai/workflow"
)

const help = `commands:
  idea <text>       set your idea
  example <n>       use the theme's n-th example prompt (from 1)
  refine            rewrite the idea in the theme's style
  generate          create the artwork
  narrate-prompt    read the prompt aloud
  narrate-image     let the guide describe the artwork
  save              write the artwork to disk
  show              print the session
  help              print this help
  quit              leave the museum`

type shell struct {
	ctrl    *workflow.Controller
	storage museai.Storage
	out     io.Writer
}

func newShell(out io.Writer, storage museai.Storage) *shell {
	return &shell{out: out, storage: storage}
}

// announce prints the controller's status line.
func (s *shell) announce(status string) {
	fmt.Fprintf(s.out, "» %s\n", status)
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	snap := s.ctrl.Snapshot()
	fmt.Fprintf(s.out, "Welcome to %s: %s.\n%s\n", snap.Museum.Name, snap.Theme.Name, help)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(s.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := s.exec(ctx, line); quit {
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch cmd {
	case "":
	case "idea":
		s.ctrl.EditIdea(arg)
	case "example":
		var n int
		n, err = strconv.Atoi(arg)
		if err == nil {
			err = s.ctrl.UseExample(n - 1)
		}
		if err != nil {
			fmt.Fprintf(s.out, "no such example %q\n", arg)
			return false
		}
		fmt.Fprintf(s.out, "idea: %s\n", s.ctrl.Snapshot().UserIdea)
	case "refine":
		if err = s.ctrl.RefinePrompt(ctx); err == nil {
			fmt.Fprintf(s.out, "prompt: %s\n", s.ctrl.Snapshot().RefinedPrompt)
		}
	case "generate":
		err = s.ctrl.GenerateArt(ctx)
	case "narrate-prompt":
		err = s.ctrl.NarratePrompt(ctx)
	case "narrate-image":
		if err = s.ctrl.NarrateImage(ctx); err == nil {
			fmt.Fprintf(s.out, "guide: %s\n", s.ctrl.Snapshot().Description)
		}
	case "save":
		var res museai.StorageResult
		if res, err = s.ctrl.SaveArtwork(ctx, s.storage); err == nil {
			fmt.Fprintf(s.out, "saved %d bytes to %s\n", res.Size, res.URL)
		}
	case "show":
		s.show()
	case "help":
		fmt.Fprintln(s.out, help)
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(s.out, "unknown command %q, try help\n", cmd)
	}

	if err != nil && !errors.Is(err, workflow.ErrPrecondition) {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

func (s *shell) show() {
	snap := s.ctrl.Snapshot()
	fmt.Fprintf(s.out, "museum:   %s (%s)\n", snap.Museum.Name, snap.Theme.Name)
	fmt.Fprintf(s.out, "phase:    %s\n", snap.Phase)
	fmt.Fprintf(s.out, "idea:     %s\n", snap.UserIdea)
	if snap.RefinedPrompt != "" {
		fmt.Fprintf(s.out, "prompt:   %s\n", snap.RefinedPrompt)
	}
	if snap.Image != nil {
		fmt.Fprintf(s.out, "artwork:  %s, %d bytes\n", snap.Image.MIMEType, len(snap.Image.Data))
	}
	if len(snap.Hashtags) > 0 {
		fmt.Fprintf(s.out, "hashtags: %s\n", strings.Join(snap.Hashtags, " "))
	}
	if snap.LastError != workflow.ErrorNone {
		fmt.Fprintf(s.out, "error:    %s\n", snap.LastError)
	}
}

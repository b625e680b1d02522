package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/autocomplete"
	"github.com/langchou/packlist/internal/editor"
	"github.com/langchou/packlist/internal/nav"
)

var sessionCommands = []string{"driver", "plate", "add", "del", "items", "save", "quit", "help"}

// linerPrompter 终端行编辑输入
type linerPrompter struct {
	*liner.State
}

func newLinerPrompter(completer func(line string) []string) prompter {
	st := liner.NewLiner()
	st.SetCtrlCAborts(true)
	if completer != nil {
		st.SetCompleter(completer)
	}
	return linerPrompter{State: st}
}

// session 交互式编辑会话，实现 editor.UI 和 nav.Navigator
type session struct {
	out    io.Writer
	p      prompter
	cache  *autocomplete.Cache
	logger *zap.Logger

	dest *nav.Destination
}

func (s *session) Confirm(_ context.Context, message string) (bool, error) {
	return confirm(s.p, message)
}

func (s *session) Suggest(query string, candidates []string) []string {
	return autocomplete.Suggest(query, candidates)
}

func (s *session) Alert(message string) {
	fmt.Fprintln(s.out, "!", message)
}

func (s *session) Focus(field editor.Field) {
	switch field {
	case editor.FieldDriver:
		fmt.Fprintln(s.out, "  set it with: driver <name>")
	case editor.FieldLicensePlate:
		fmt.Fprintln(s.out, "  set it with: plate <SPZ>")
	case editor.FieldItems:
		fmt.Fprintln(s.out, "  add one with: add <item>")
	}
}

func (s *session) Render(v editor.View) {
	fmt.Fprintf(s.out, "Driver: %s  SPZ: %s  [%s]\n", dash(v.DriverName), dash(v.LicensePlate), v.SaveLabel)
	if len(v.Items) == 0 {
		fmt.Fprintln(s.out, "  (no items)")
		return
	}
	for i, item := range v.Items {
		fmt.Fprintf(s.out, "  %d. %s\n", i+1, item)
	}
}

func (s *session) Navigate(dest nav.Destination) {
	s.dest = &dest
	fmt.Fprintf(s.out, "-> %s\n", dest)
}

// complete Tab 补全：命令名，以及 driver/plate 的历史值
func (s *session) complete(line string) []string {
	cmd, query, hasArg := strings.Cut(line, " ")
	if !hasArg {
		var out []string
		for _, c := range sessionCommands {
			if strings.HasPrefix(c, strings.ToLower(cmd)) {
				out = append(out, c+" ")
			}
		}
		return out
	}
	if s.cache == nil {
		return nil
	}

	var kind autocomplete.Kind
	switch cmd {
	case "driver":
		kind = autocomplete.Drivers
	case "plate":
		kind = autocomplete.LicensePlates
	default:
		return nil
	}

	var out []string
	for _, c := range s.cache.Suggest(kind, query) {
		out = append(out, cmd+" "+c)
	}
	return out
}

// loop 读取命令直到保存成功后导航离开或用户退出
func (s *session) loop(ctx context.Context, ed *editor.Editor) error {
	s.show(ed)
	for s.dest == nil {
		prompt := "packlist> "
		if ed.HasUnsavedChanges() {
			prompt = "packlist*> "
		}
		line, err := s.p.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if h, ok := s.p.(interface{ AppendHistory(string) }); ok {
			h.AppendHistory(line)
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(cmd) {
		case "driver":
			if arg == "" {
				s.printSuggestions(autocomplete.Drivers, ed)
				continue
			}
			ed.SetDriverName(arg)
		case "plate":
			if arg == "" {
				s.printSuggestions(autocomplete.LicensePlates, ed)
				continue
			}
			ed.SetLicensePlate(arg)
		case "add":
			if !ed.AddItem(arg) {
				fmt.Fprintln(s.out, "  nothing added (blank or already listed)")
			}
		case "del", "rm":
			n, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintln(s.out, "  usage: del <number>")
				continue
			}
			if _, err := ed.DeleteItem(ctx, n-1); err != nil {
				fmt.Fprintln(s.out, "!", err)
			}
		case "items", "show":
			s.show(ed)
		case "save":
			if err := ed.Save(ctx); err != nil {
				s.logger.Debug("Save did not complete", zap.Error(err))
			}
		case "quit", "exit", "q":
			if ed.HasUnsavedChanges() {
				ok, err := s.Confirm(ctx, "Discard unsaved changes?")
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}
			return nil
		case "help", "?":
			s.printHelp()
		default:
			fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
	return nil
}

func (s *session) show(ed *editor.Editor) {
	s.Render(editor.View{
		State:        ed.State(),
		Items:        ed.Items(),
		DriverName:   ed.DriverName(),
		LicensePlate: ed.LicensePlate(),
		SaveLabel:    ed.SaveLabel(),
	})
}

func (s *session) printSuggestions(kind autocomplete.Kind, ed *editor.Editor) {
	if s.cache == nil {
		return
	}
	for _, c := range ed.Suggest("", s.cache.Get(kind)) {
		fmt.Fprintln(s.out, " ", c)
	}
}

func (s *session) printHelp() {
	fmt.Fprint(s.out, `Commands:
  driver <name>   Set the driver (no argument lists known drivers)
  plate <SPZ>     Set the license plate (no argument lists known plates)
  add <item>      Append an item
  del <number>    Delete an item after confirmation
  items           Show the list
  save            Save and leave
  quit            Leave without saving
`)
}

// confirm y/N 提问，中断输入视为否
func confirm(p prompter, message string) (bool, error) {
	answer, err := p.Prompt(message + " (y/N): ")
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (a *app) newSession(ctx context.Context) *session {
	cache := autocomplete.New(a.api, a.logger)
	cache.Load(ctx)

	s := &session{out: a.out, cache: cache, logger: a.logger}
	s.p = a.newPrompter(s.complete)
	return s
}

func (a *app) cmdNew(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fresh := fs.Bool("discard-draft", false, "Start from an empty list")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("new: unexpected argument %q", fs.Arg(0))
	}

	drafts := editor.FileDrafts{Path: a.draftPath}
	if *fresh {
		if err := drafts.Clear(); err != nil {
			return err
		}
	}

	s := a.newSession(ctx)
	defer s.p.Close()

	ed := editor.NewCreate(a.api, s, s, editor.WithLogger(a.logger), editor.WithDrafts(drafts))
	return s.loop(ctx, ed)
}

func (a *app) cmdEdit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	from := fs.String("from", "", "Page to return to after saving (view or overview)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg("edit", fs.Args())
	if err != nil {
		return err
	}
	origin, err := parseOrigin(*from)
	if err != nil {
		return err
	}

	s := a.newSession(ctx)
	defer s.p.Close()

	ed := editor.NewEdit(a.api, s, s, id, origin, editor.WithLogger(a.logger))
	if err := ed.Load(ctx); err != nil {
		return err
	}
	return s.loop(ctx, ed)
}

func parseOrigin(s string) (editor.Origin, error) {
	switch strings.ToLower(s) {
	case "":
		return editor.OriginUnknown, nil
	case "view":
		return editor.OriginView, nil
	case "overview":
		return editor.OriginOverview, nil
	}
	return editor.OriginUnknown, fmt.Errorf("edit: --from must be view or overview, got %q", s)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/client"
	"github.com/langchou/packlist/internal/config"
	"github.com/langchou/packlist/internal/listview"
	"github.com/langchou/packlist/pkg/ws"
)

const dateLayout = "02.01.2006 15:04"

// prompter 行输入（*liner.State 满足）
type prompter interface {
	Prompt(prompt string) (string, error)
	Close() error
}

type app struct {
	cfg       *config.ClientConfig
	out       io.Writer
	errOut    io.Writer
	logger    *zap.Logger
	draftPath string

	// newPrompter 打开交互输入，completer 可为 nil
	newPrompter func(completer func(line string) []string) prompter

	api *client.Client
}

// run 解析全局参数并分发子命令，返回退出码
func (a *app) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("packlist", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)

	server := fs.StringP("server", "s", a.cfg.ServerURL, "Server base URL")
	help := fs.BoolP("help", "h", false, "Show help")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(a.errOut, "error:", err)
		printUsage(a.errOut)
		return 1
	}

	rest := fs.Args()
	if *help || len(rest) == 0 {
		printUsage(a.out)
		return 0
	}

	a.api = client.New(*server, client.WithTimeout(a.cfg.Timeout), client.WithLogger(a.logger))

	cmd, cmdArgs := rest[0], rest[1:]
	var err error
	switch cmd {
	case "ls", "list":
		err = a.cmdLs(ctx, cmdArgs)
	case "show":
		err = a.cmdShow(ctx, cmdArgs)
	case "print":
		err = a.cmdPrint(ctx, cmdArgs)
	case "new":
		err = a.cmdNew(ctx, cmdArgs)
	case "edit":
		err = a.cmdEdit(ctx, cmdArgs)
	case "rm", "delete":
		err = a.cmdRm(ctx, cmdArgs)
	case "next-id":
		err = a.cmdNextID(ctx, cmdArgs)
	case "help":
		printUsage(a.out)
		return 0
	default:
		fmt.Fprintln(a.errOut, "error: unknown command:", cmd)
		printUsage(a.errOut)
		return 1
	}

	if err != nil {
		fmt.Fprintln(a.errOut, "error:", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: packlist [--server URL] <command> [args]

Commands:
  ls [--sort KEY] [--asc|--desc] [--watch]   List packing lists
  show <id>                                  Show one list
  print <id> [--page-size N]                 Print a list for signing
  new [--discard-draft]                      Create a list interactively
  edit <id> [--from view|overview]           Edit a list interactively
  rm <id> [--yes]                            Delete a list
  next-id                                    Show the id the next list will get

Global flags:
  -s, --server URL   Server base URL (default $PACKLIST_SERVER)
  -h, --help         Show help
`)
}

func (a *app) cmdLs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	sortKey := fs.String("sort", string(listview.KeyID), "Sort by id, driver, plate, itemCount or createdAt")
	asc := fs.Bool("asc", false, "Ascending order")
	desc := fs.Bool("desc", false, "Descending order")
	watch := fs.BoolP("watch", "w", false, "Re-list on every change")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *asc && *desc {
		return errors.New("--asc and --desc are mutually exclusive")
	}

	state, err := sortState(*sortKey, *asc, *desc)
	if err != nil {
		return err
	}

	table := listview.NewTable(a.api, listview.TextExporter{Out: a.out}, a.logger)
	table.SetSort(state)
	if err := table.Refresh(ctx); err != nil {
		return err
	}
	a.printRows(table.Rows())

	if !*watch {
		return nil
	}

	err = a.api.Watch(ctx, func(msg ws.Message) {
		if msg.Type != ws.MsgTypeListsChanged {
			return
		}
		if err := table.Refresh(ctx); err != nil {
			a.logger.Warn("Failed to refresh lists", zap.Error(err))
			return
		}
		fmt.Fprintln(a.out)
		a.printRows(table.Rows())
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// sortState 命令行排序参数转为排序状态；未指定方向时使用该列的默认方向
func sortState(key string, asc, desc bool) (listview.SortState, error) {
	k, err := listview.ParseSortKey(key)
	if err != nil {
		return listview.SortState{}, err
	}

	state := listview.InitialSort()
	if k != state.Key {
		state = state.Toggle(k)
	}
	switch {
	case asc:
		state.Dir = listview.Asc
	case desc:
		state.Dir = listview.Desc
	}
	return state, nil
}

func (a *app) printRows(rows []listview.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No lists.")
		return
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDRIVER\tSPZ\tITEMS\tDATE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", r.ID, dash(r.Driver), dash(r.Plate), r.ItemCount, r.Date)
	}
	tw.Flush()
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	id, err := idArg("show", args)
	if err != nil {
		return err
	}

	list, err := a.api.GetList(ctx, id)
	if err != nil {
		return notFoundOr(id, err)
	}

	fmt.Fprintf(a.out, "ID:      %d\n", list.ID)
	fmt.Fprintf(a.out, "Driver:  %s\n", dash(list.DriverName))
	fmt.Fprintf(a.out, "SPZ:     %s\n", dash(list.LicensePlate))
	fmt.Fprintf(a.out, "Created: %s\n", list.CreatedAt.Local().Format(dateLayout))
	fmt.Fprintf(a.out, "Updated: %s\n", list.UpdatedAt.Local().Format(dateLayout))
	fmt.Fprintf(a.out, "Items (%d):\n", len(list.Items))
	for i, item := range list.Items {
		fmt.Fprintf(a.out, "  %d. %s\n", i+1, item)
	}
	return nil
}

func (a *app) cmdPrint(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	pageSize := fs.Int("page-size", 0, "Items per page, 0 for a single page")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pageSize < 0 {
		return errors.New("--page-size must not be negative")
	}
	id, err := idArg("print", fs.Args())
	if err != nil {
		return err
	}

	table := listview.NewTable(a.api, listview.TextExporter{Out: a.out, PageSize: *pageSize}, a.logger)
	if err := table.Export(ctx, id); err != nil {
		return notFoundOr(id, err)
	}
	return nil
}

func (a *app) cmdRm(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	yes := fs.BoolP("yes", "y", false, "Do not ask for confirmation")

	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg("rm", fs.Args())
	if err != nil {
		return err
	}

	if !*yes {
		p := a.newPrompter(nil)
		ok, err := confirm(p, fmt.Sprintf("Are you sure you want to delete list %d?", id))
		p.Close()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, "Cancelled.")
			return nil
		}
	}

	if err := a.api.DeleteList(ctx, id); err != nil {
		return notFoundOr(id, err)
	}
	fmt.Fprintf(a.out, "Deleted list %d.\n", id)
	return nil
}

func (a *app) cmdNextID(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("next-id: unexpected argument %q", args[0])
	}
	id, err := a.api.GetNextListID(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

// idArg 读取唯一的位置参数作为清单 ID
func idArg(cmd string, args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s: expected exactly one list id", cmd)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s: invalid list id %q", cmd, args[0])
	}
	return id, nil
}

func notFoundOr(id int64, err error) error {
	if client.IsNotFound(err) {
		return fmt.Errorf("list %d: Not found", id)
	}
	return err
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	apiclient "github.com/splax/teamboard/pkg/api/client"
	"github.com/splax/teamboard/pkg/config"
)

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "projects":
		err = commandProjects(args)
	case "tasks":
		err = commandTasks(args)
	case "move":
		err = commandMove(args)
	case "stats":
		err = commandStats(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	token := fs.String("token", "", "Access token from the identity provider (prompted when omitted)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	secret := strings.TrimSpace(*token)
	if secret == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("--token is required")
		}
		fmt.Print("Token: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		secret = strings.TrimSpace(string(raw))
	}
	if secret == "" {
		return errors.New("empty token")
	}

	cfg, _ := config.LoadCLIConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}
	cfg.AccessToken = secret

	client, err := apiclient.New(cfg.APIBaseURL, apiclient.WithToken(secret))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := client.Projects(ctx); err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	if err := config.SaveCLIConfig(cfg); err != nil {
		return err
	}
	fmt.Println("login successful")
	return nil
}

func commandProjects(args []string) error {
	fs := flag.NewFlagSet("projects", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print JSON even on a terminal")
	fs.Parse(args)

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	projects, err := client.Projects(ctx)
	if err != nil {
		return err
	}
	return render(os.Stdout, *asJSON, projects, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tTEAM\tPERMISSION")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Project.ID, p.Project.Name, p.Project.TeamID, p.Permission)
		}
	})
}

func commandTasks(args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	status := fs.String("status", "", "Only tasks in this status")
	search := fs.String("search", "", "Case-insensitive match on name or description")
	desc := fs.Bool("desc", false, "Newest first")
	limit := fs.Int("limit", 0, "Page size")
	all := fs.Bool("all", false, "Follow cursors until the listing is exhausted")
	asJSON := fs.Bool("json", false, "Print JSON even on a terminal")
	projectID, rest := positional(args)
	fs.Parse(rest)
	if projectID == "" {
		return errors.New("usage: board tasks <project-id> [--status s] [--search q] [--all]")
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	query := apiclient.TaskQuery{Status: *status, Search: *search, Descending: *desc, Limit: *limit}

	var (
		tasks []apiclient.Task
		next  string
	)
	if *all {
		tasks, err = client.AllTasks(ctx, projectID, query)
	} else {
		var page apiclient.TaskPage
		page, err = client.Tasks(ctx, projectID, query)
		tasks, next = page.Items, page.NextCursor
	}
	if err != nil {
		return err
	}
	if err := render(os.Stdout, *asJSON, tasks, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tSTATUS\tNAME\tDUE")
		for _, t := range tasks {
			due := "-"
			if t.DueAt != nil {
				due = t.DueAt.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Name, due)
		}
	}); err != nil {
		return err
	}
	if next != "" {
		fmt.Fprintln(os.Stderr, "more tasks available; rerun with --all")
	}
	return nil
}

func commandMove(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: board move <task-id> <status>")
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	task, err := client.MoveTask(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("%s moved to %s\n", task.ID, task.Status)
	return nil
}

func commandStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print JSON even on a terminal")
	projectID, rest := positional(args)
	fs.Parse(rest)
	if projectID == "" {
		return errors.New("usage: board stats <project-id>")
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	stats, err := client.Stats(ctx, projectID)
	if err != nil {
		return err
	}
	return render(os.Stdout, *asJSON, stats, func(w io.Writer) {
		fmt.Fprintln(w, "BACKLOG\tTODO\tIN PROGRESS\tREVIEW\tDONE\tTOTAL\tCOMPLETE")
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%d%%\n", stats.Backlog, stats.Todo, stats.InProgress, stats.Review, stats.Done, stats.Total, stats.CompletionRate)
	})
}

func newClient() (*apiclient.Client, error) {
	cfg, err := config.LoadCLIConfig()
	if err != nil {
		return nil, err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("please login first using 'board login'")
	}
	return apiclient.New(cfg.APIBaseURL, apiclient.WithToken(token))
}

// positional splits off a leading non-flag argument so ids may precede flags.
func positional(args []string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", args
	}
	return args[0], args[1:]
}

// render prints a table on a terminal and JSON otherwise.
func render(out *os.File, forceJSON bool, v any, table func(io.Writer)) error {
	if forceJSON || !term.IsTerminal(int(out.Fd())) {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func printUsage() {
	fmt.Printf("board CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	board login [--token <token>] [--api http://localhost:4000]
	board projects [--json]
	board tasks <project-id> [--status s] [--search q] [--desc] [--limit N] [--all] [--json]
	board move <task-id> <status>
	board stats <project-id> [--json]
	board version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}

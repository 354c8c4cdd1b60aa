package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/reqtab/internal/config"
	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/executor"
	"github.com/hpungsan/reqtab/internal/ops"
	"github.com/hpungsan/reqtab/internal/tabs"
)

// maxBodyBytes bounds a request body read from stdin.
const maxBodyBytes = 10 << 20

// session bundles what CLI commands operate on.
type session struct {
	db   *sql.DB
	cfg  *config.Config
	tabs *tabs.Manager
	exec *executor.Executor
}

// newCLIApp creates the CLI application with all commands.
// s may be nil when only help or version output is needed.
func newCLIApp(s *session) *cli.App {
	app := &cli.App{
		Name:    "reqtab",
		Usage:   "Request tabs for HTTP work",
		Version: Version,
		Commands: []*cli.Command{
			tabsCmd(s),
			showCmd(s),
			openCmd(s),
			newCmd(s),
			closeCmd(s),
			switchCmd(s),
			cycleCmd(s, "next", "Activate the next tab", false),
			cycleCmd(s, "prev", "Activate the previous tab", true),
			dupCmd(s),
			pinCmd(s),
			moveCmd(s),
			closeManyCmd(s, "close-all", "Close every tab", ops.CloseModeAll),
			closeManyCmd(s, "close-others", "Close every tab except one", ops.CloseModeOthers),
			closeManyCmd(s, "close-unpinned", "Close every tab that is not pinned", ops.CloseModeUnpinned),
			editCmd(s),
			saveCmd(s),
			revertCmd(s),
			runCmd(s),
			requestCmd(s),
			collectionCmd(s),
			sessionCmd(s),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// Tab commands

func tabsCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "tabs",
		Usage: "List open tabs",
		Action: func(c *cli.Context) error {
			return outputJSON(ops.ListTabs(s.tabs, s.cfg.TabNameMaxChars))
		},
	}
}

func showCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a tab (default: the active tab)",
		ArgsUsage: "[tab-id]",
		Action: func(c *cli.Context) error {
			id, err := tabArg(c, s)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.ShowTab(s.tabs, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func openCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Open a saved request in a tab",
		ArgsUsage: "<request-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "background", Aliases: []string{"b"}, Usage: "Open without activating"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.OpenRequest(c.Context, s.db, s.tabs, ops.OpenRequestInput{
				RequestID:  c.Args().First(),
				Background: c.Bool("background"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func newCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Open a blank tab",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "background", Aliases: []string{"b"}, Usage: "Open without activating"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.NewTab(s.tabs, c.Bool("background"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func closeCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "close",
		Usage:     "Close a tab (default: the active tab)",
		ArgsUsage: "[tab-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Discard unsaved changes"},
		},
		Action: func(c *cli.Context) error {
			id, err := tabArg(c, s)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.CloseTab(s.tabs, ops.CloseTabInput{TabID: id, Force: c.Bool("force")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func switchCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "switch",
		Usage:     "Activate a tab by id, 1-indexed position, or \"last\"",
		ArgsUsage: "<tab-id|N|last>",
		Action: func(c *cli.Context) error {
			input, err := parseSwitchTarget(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			output, err := ops.SwitchTab(s.tabs, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func cycleCmd(s *session, name, usage string, backwards bool) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(c *cli.Context) error {
			output, err := ops.CycleTab(s.tabs, backwards)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func dupCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "dup",
		Usage:     "Duplicate a tab (default: the active tab)",
		ArgsUsage: "[tab-id]",
		Action: func(c *cli.Context) error {
			id, err := tabArg(c, s)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.DuplicateTab(s.tabs, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func pinCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "pin",
		Usage:     "Toggle a tab's pin (default: the active tab)",
		ArgsUsage: "[tab-id]",
		Action: func(c *cli.Context) error {
			id, err := tabArg(c, s)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.PinTab(s.tabs, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func moveCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "Move a tab to another position (1-indexed)",
		ArgsUsage: "<from> <to>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("move takes two positions"))
			}
			from, err1 := strconv.Atoi(c.Args().Get(0))
			to, err2 := strconv.Atoi(c.Args().Get(1))
			if err1 != nil || err2 != nil {
				return outputError(errors.NewInvalidRequest("positions must be integers"))
			}
			output, err := ops.MoveTab(s.tabs, ops.MoveTabInput{From: from - 1, To: to - 1})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func closeManyCmd(s *session, name, usage string, mode ops.CloseMode) *cli.Command {
	cmd := &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Discard unsaved changes"},
		},
		Action: func(c *cli.Context) error {
			input := ops.CloseTabsInput{Mode: mode, Force: c.Bool("force")}
			if mode == ops.CloseModeOthers {
				id, err := tabArg(c, s)
				if err != nil {
					return outputError(err)
				}
				input.KeepID = id
			}
			output, err := ops.CloseTabs(s.tabs, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
	if mode == ops.CloseModeOthers {
		cmd.ArgsUsage = "[tab-id]"
	}
	return cmd
}

func editCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a tab's request (default: the active tab). --body @- reads stdin",
		ArgsUsage: "[tab-id]",
		Flags: append(draftFlags(),
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Tab name"},
		),
		Action: func(c *cli.Context) error {
			id, err := tabArg(c, s)
			if err != nil {
				return outputError(err)
			}
			d, err := readDraftFlags(c)
			if err != nil {
				return outputError(err)
			}
			input := ops.EditTabInput{
				TabID:           id,
				Method:          d.method,
				URL:             d.url,
				Headers:         d.headers,
				Body:            d.body,
				TimeoutMs:       d.timeoutMs,
				FollowRedirects: d.followRedirects,
			}
			if c.IsSet("name") {
				name := c.String("name")
				input.Name = &name
			}
			output, err := ops.EditTab(s.tabs, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func saveCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save a tab (default: the active tab) to its request, or as a new request",
		ArgsUsage: "[tab-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Name for a new request (default: tab name)"},
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Collection id for a new request"},
		},
		Action: func(c *cli.Context) error {
			id, err := tabArg(c, s)
			if err != nil {
				return outputError(err)
			}
			input := ops.SaveTabInput{TabID: id, CollectionID: c.String("collection")}
			if c.IsSet("name") {
				name := c.String("name")
				input.Name = &name
			}
			output, err := ops.SaveTab(c.Context, s.db, s.tabs, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func revertCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "revert",
		Usage:     "Discard a tab's edits (default: the active tab)",
		ArgsUsage: "[tab-id]",
		Action: func(c *cli.Context) error {
			id, err := tabArg(c, s)
			if err != nil {
				return outputError(err)
			}
			if _, err := ops.RevertTab(c.Context, s.db, s.tabs, id); err != nil {
				return outputError(err)
			}
			output, err := ops.ShowTab(s.tabs, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func runCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Send a tab's request (default: the active tab)",
		ArgsUsage: "[tab-id]",
		Action: func(c *cli.Context) error {
			id, err := tabArg(c, s)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.RunTab(c.Context, s.exec, s.tabs, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Request commands

func requestCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "request",
		Usage: "Manage saved requests",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Save a new request. --body @- reads stdin",
				Flags: append(draftFlags(),
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Request name", Required: true},
					&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Collection id"},
				),
				Action: func(c *cli.Context) error {
					d, err := readDraftFlags(c)
					if err != nil {
						return outputError(err)
					}
					input := ops.CreateRequestInput{
						CollectionID:    c.String("collection"),
						Name:            c.String("name"),
						Headers:         d.headers,
						TimeoutMs:       s.cfg.DefaultTimeoutMs,
						FollowRedirects: d.followRedirects,
					}
					if d.method != nil {
						input.Method = *d.method
					}
					if d.url != nil {
						input.URL = *d.url
					}
					if d.body != nil {
						input.Body = *d.body
					}
					if d.timeoutMs != nil {
						input.TimeoutMs = *d.timeoutMs
					}
					output, err := ops.CreateRequest(c.Context, s.db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List saved requests, most recently updated first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Filter by collection id"},
					&cli.StringFlag{Name: "prefix", Usage: "Filter by name prefix"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
					&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
					&cli.BoolFlag{Name: "include-deleted", Usage: "Include deleted requests"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListRequests(c.Context, s.db, ops.ListRequestsInput{
						CollectionID:   c.String("collection"),
						NamePrefix:     c.String("prefix"),
						Limit:          c.Int("limit"),
						Offset:         c.Int("offset"),
						IncludeDeleted: c.Bool("include-deleted"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "show",
				Usage:     "Show a saved request",
				ArgsUsage: "<request-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "include-deleted", Usage: "Include deleted requests"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.FetchRequest(c.Context, s.db, ops.FetchRequestInput{
						ID:             c.Args().First(),
						IncludeDeleted: c.Bool("include-deleted"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "update",
				Usage:     "Update a saved request. --body @- reads stdin",
				ArgsUsage: "<request-id>",
				Flags: append(draftFlags(),
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Request name"},
					&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Collection id (\"\" detaches)"},
				),
				Action: func(c *cli.Context) error {
					d, err := readDraftFlags(c)
					if err != nil {
						return outputError(err)
					}
					input := ops.UpdateRequestInput{
						ID:              c.Args().First(),
						Method:          d.method,
						URL:             d.url,
						Headers:         d.headers,
						Body:            d.body,
						TimeoutMs:       d.timeoutMs,
						FollowRedirects: d.followRedirects,
					}
					if c.IsSet("name") {
						name := c.String("name")
						input.Name = &name
					}
					if c.IsSet("collection") {
						col := c.String("collection")
						input.CollectionID = &col
					}
					output, err := ops.UpdateRequest(c.Context, s.db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a saved request (open tabs keep their draft)",
				ArgsUsage: "<request-id>",
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteRequest(c.Context, s.db, ops.DeleteRequestInput{ID: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// Collection commands

func collectionCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "collection",
		Usage: "Manage collections",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a collection",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Description"},
				},
				Action: func(c *cli.Context) error {
					input := ops.CreateCollectionInput{Name: strings.Join(c.Args().Slice(), " ")}
					if c.IsSet("description") {
						desc := c.String("description")
						input.Description = &desc
					}
					output, err := ops.CreateCollection(c.Context, s.db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List collections",
				Action: func(c *cli.Context) error {
					output, err := ops.ListCollections(c.Context, s.db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// Session commands

func sessionCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage the stored tab session",
		Subcommands: []*cli.Command{
			{
				Name:  "save",
				Usage: "Write the session snapshot now",
				Action: func(c *cli.Context) error {
					if err := s.tabs.SaveSession(c.Context); err != nil {
						return outputError(errors.NewInternal(err))
					}
					return outputJSON(map[string]any{"saved": true, "tabs": s.tabs.Len()})
				},
			},
			{
				Name:  "clear",
				Usage: "Delete the stored session snapshot",
				Action: func(c *cli.Context) error {
					if err := s.tabs.ClearSession(c.Context); err != nil {
						return outputError(errors.NewInternal(err))
					}
					return outputJSON(map[string]any{"cleared": true, "tabs": s.tabs.Len()})
				},
			},
		},
	}
}

// Helper functions

// tabArg returns the tab id argument, or the active tab when none is given.
func tabArg(c *cli.Context, s *session) (string, error) {
	if id := strings.TrimSpace(c.Args().First()); id != "" {
		return id, nil
	}
	if id := s.tabs.ActiveID(); id != "" {
		return id, nil
	}
	return "", errors.NewInvalidRequest("no tab given and no tab is active")
}

// parseSwitchTarget interprets a switch argument as a position, "last", or a tab id.
func parseSwitchTarget(arg string) (ops.SwitchTabInput, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return ops.SwitchTabInput{}, errors.NewInvalidRequest("tab id or position is required")
	}
	if arg == "last" {
		return ops.SwitchTabInput{Position: -1}, nil
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 {
			return ops.SwitchTabInput{}, errors.NewInvalidRequest("position must be 1 or more")
		}
		return ops.SwitchTabInput{Position: n}, nil
	}
	return ops.SwitchTabInput{TabID: arg}, nil
}

// draftFlags are shared by commands that edit a request draft.
func draftFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "method", Aliases: []string{"X"}, Usage: "HTTP method"},
		&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Request URL"},
		&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: "Header as 'Name: value' (repeatable, replaces all headers)"},
		&cli.BoolFlag{Name: "clear-headers", Usage: "Remove all headers"},
		&cli.StringFlag{Name: "body", Aliases: []string{"d"}, Usage: "Request body, or @- to read stdin"},
		&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Usage: "Request timeout, e.g. 5s"},
		&cli.BoolFlag{Name: "follow-redirects", Value: true, Usage: "Follow redirects (--follow-redirects=false to stop)"},
	}
}

// draftValues holds the draft flags that were actually given.
type draftValues struct {
	method          *string
	url             *string
	headers         map[string]string
	body            *string
	timeoutMs       *int
	followRedirects *bool
}

func readDraftFlags(c *cli.Context) (draftValues, error) {
	var d draftValues
	if c.IsSet("method") {
		v := c.String("method")
		d.method = &v
	}
	if c.IsSet("url") {
		v := c.String("url")
		d.url = &v
	}
	if c.IsSet("header") {
		h, err := parseHeaders(c.StringSlice("header"))
		if err != nil {
			return d, err
		}
		d.headers = h
	} else if c.Bool("clear-headers") {
		d.headers = map[string]string{}
	}
	if c.IsSet("body") {
		v := c.String("body")
		if v == "@-" {
			data, err := readStdin(maxBodyBytes)
			if err != nil {
				return d, errors.NewInvalidRequest(err.Error())
			}
			v = data
		}
		d.body = &v
	}
	if c.IsSet("timeout") {
		ms := int(c.Duration("timeout").Milliseconds())
		if ms < 0 {
			return d, errors.NewInvalidRequest("timeout must not be negative")
		}
		d.timeoutMs = &ms
	}
	if c.IsSet("follow-redirects") {
		v := c.Bool("follow-redirects")
		d.followRedirects = &v
	}
	return d, nil
}

// parseHeaders turns "Name: value" strings into a header map.
func parseHeaders(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid header %q (want 'Name: value')", v))
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if rErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", rErr.Code, rErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readStdin reads all of stdin, failing if it exceeds limit bytes.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

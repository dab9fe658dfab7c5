package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/yungbote/taskmaster-backend/internal/client"
	types "github.com/yungbote/taskmaster-backend/internal/domain"
)

func loginCmd(opts *options, out io.Writer) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := opts.server
			if server == "" {
				server = defaultServer
			}
			if password == "" {
				password = os.Getenv("PROGRESSCTL_PASSWORD")
			}
			if strings.TrimSpace(email) == "" || password == "" {
				return errors.New("--email and --password (or PROGRESSCTL_PASSWORD) are required")
			}
			c, err := client.New(server)
			if err != nil {
				return err
			}
			sess, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return describe(err)
			}
			if err := saveSession(opts.sessionPath, sessionFile{
				Server:       c.BaseURL(),
				Email:        email,
				AccessToken:  sess.AccessToken,
				RefreshToken: sess.RefreshToken,
			}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "Logged in as %s on %s\n", email, c.BaseURL())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func getCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "get <project-id>",
		Short: "Print the live progress document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			doc, err := e.client.Get(cmd.Context(), e.sess, projectID)
			if err != nil {
				return describe(err)
			}
			return e.printDocument(doc, true)
		},
	}
}

func initCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init <project-id>",
		Short: "Create the progress document from the default template if it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			doc, err := e.client.GetOrCreate(cmd.Context(), e.sess, projectID)
			if err != nil {
				return describe(err)
			}
			return e.printDocument(doc, false)
		},
	}
}

func saveCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	var (
		file            string
		summary         string
		expectedVersion int
	)
	cmd := &cobra.Command{
		Use:   "save <project-id>",
		Short: "Replace the document content from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			body, err := readContent(file, in)
			if err != nil {
				return err
			}
			input := client.SaveInput{Content: &body, ChangeSummary: summary}
			if cmd.Flags().Changed("expected-version") {
				input.ExpectedVersion = &expectedVersion
			}
			doc, err := e.client.Save(cmd.Context(), e.sess, projectID, input)
			if err != nil {
				return describe(err)
			}
			return e.printDocument(doc, false)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Markdown file to upload; - reads stdin")
	cmd.Flags().StringVarP(&summary, "summary", "m", "", "Change summary")
	cmd.Flags().IntVar(&expectedVersion, "expected-version", 0, "Fail if the live version differs")
	return cmd
}

func historyCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	var skip, limit int
	cmd := &cobra.Command{
		Use:   "history <project-id>",
		Short: "List versions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			entries, err := e.client.History(cmd.Context(), e.sess, projectID, client.HistoryOptions{Skip: skip, Limit: limit})
			if err != nil {
				return describe(err)
			}
			if e.opts.asJSON {
				return e.printJSON(entries)
			}
			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "VERSION\tCREATED\tSUMMARY")
			for _, h := range entries {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", h.Version, h.CreatedAt.Format("2006-01-02 15:04"), h.ChangeSummary)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "Entries to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries (server default when 0)")
	return cmd
}

func showCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id> <version>",
		Short: "Print the content of one version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			version, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			entry, err := e.client.Version(cmd.Context(), e.sess, projectID, version)
			if err != nil {
				return describe(err)
			}
			if e.opts.asJSON {
				return e.printJSON(entry)
			}
			e.printf("%s", withNewline(entry.Content))
			return nil
		},
	}
}

func compareCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	var stat bool
	cmd := &cobra.Command{
		Use:   "compare <project-id> <version-a> <version-b>",
		Short: "Diff two versions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			a, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			b, err := parseVersion(args[2])
			if err != nil {
				return err
			}
			cmp, err := e.client.Compare(cmd.Context(), e.sess, projectID, a, b)
			if err != nil {
				return describe(err)
			}
			if e.opts.asJSON {
				return e.printJSON(cmp)
			}
			e.printf("%s\n", cmp.Summary)
			if cmp.Unified == "" {
				return nil
			}
			if stat {
				return e.printHunks(cmp.Unified)
			}
			e.printf("\n%s", withNewline(cmp.Unified))
			return nil
		},
	}
	cmd.Flags().BoolVar(&stat, "stat", false, "List changed hunks instead of the full diff")
	return cmd
}

func restoreCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	var (
		summary         string
		expectedVersion int
	)
	cmd := &cobra.Command{
		Use:   "restore <project-id> <version>",
		Short: "Make an old version current again as a new version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			version, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			ro := client.RestoreOptions{ChangeSummary: summary}
			if cmd.Flags().Changed("expected-version") {
				ro.ExpectedVersion = &expectedVersion
			}
			doc, err := e.client.Restore(cmd.Context(), e.sess, projectID, version, ro)
			if err != nil {
				return describe(err)
			}
			return e.printDocument(doc, false)
		},
	}
	cmd.Flags().StringVarP(&summary, "summary", "m", "", "Change summary (default: Restored to version N)")
	cmd.Flags().IntVar(&expectedVersion, "expected-version", 0, "Fail if the live version differs")
	return cmd
}

func publishCmd(opts *options, in io.Reader, out io.Writer, publish bool) *cobra.Command {
	use, short := "publish", "Make the document visible to every signed-in user"
	if !publish {
		use, short = "unpublish", "Make the document visible to the owner only"
	}
	return &cobra.Command{
		Use:   use + " <project-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			call := e.client.Unpublish
			if publish {
				call = e.client.Publish
			}
			doc, err := call(cmd.Context(), e.sess, projectID)
			if err != nil {
				return describe(err)
			}
			return e.printDocument(doc, false)
		},
	}
}

func statsCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <project-id>",
		Short: "Show document statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			st, err := e.client.Stats(cmd.Context(), e.sess, projectID)
			if err != nil {
				return describe(err)
			}
			if e.opts.asJSON {
				return e.printJSON(st)
			}
			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintf(tw, "Version\t%d\n", st.Version)
			_, _ = fmt.Fprintf(tw, "Published\t%t\n", st.IsPublished)
			_, _ = fmt.Fprintf(tw, "Total versions\t%d\n", st.TotalVersions)
			_, _ = fmt.Fprintf(tw, "Words\t%d\n", st.WordCount)
			_, _ = fmt.Fprintf(tw, "Characters\t%d\n", st.CharacterCount)
			_, _ = fmt.Fprintf(tw, "Reading time\t%d min\n", st.ReadingTimeMinutes)
			_, _ = fmt.Fprintf(tw, "Days since update\t%d\n", st.DaysSinceUpdate)
			return tw.Flush()
		},
	}
}

func exportCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	var (
		eo      client.ExportOptions
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Render the document as markdown, html or txt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			res, err := e.client.Export(cmd.Context(), e.sess, projectID, eo)
			if err != nil {
				return describe(err)
			}
			if e.opts.asJSON {
				return e.printJSON(res)
			}
			return e.writeExport(cmd.Context(), res, outPath)
		},
	}
	cmd.Flags().StringVar(&eo.Format, "format", "markdown", "markdown, html or txt")
	cmd.Flags().BoolVar(&eo.IncludeMetadata, "include-metadata", false, "Add a status/update block")
	cmd.Flags().BoolVar(&eo.IncludeTOC, "include-toc", false, "Add a table of contents")
	cmd.Flags().BoolVar(&eo.IncludeVersionInfo, "include-version-info", false, "Add the version number")
	cmd.Flags().StringVar(&eo.CustomTitle, "title", "", "Override the document title")
	cmd.Flags().StringVar(&eo.CustomFooter, "footer", "", "Append a footer")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to this file (default: the export filename; - for stdout)")
	return cmd
}

func deleteCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete the document and its whole history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, projectID, err := projectEnv(opts, in, out, args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(in, out, "Delete the progress document and all versions? This cannot be undone. [y/N] ")
				if err != nil {
					return err
				}
				if !ok {
					e.printf("Aborted\n")
					return nil
				}
			}
			if err := e.client.Delete(cmd.Context(), e.sess, projectID); err != nil {
				return describe(err)
			}
			e.printf("Deleted progress document of %s\n", projectID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func projectEnv(opts *options, in io.Reader, out io.Writer, rawID string) (*env, uuid.UUID, error) {
	projectID, err := parseProjectID(rawID)
	if err != nil {
		return nil, projectID, err
	}
	e, err := authed(opts, in, out)
	if err != nil {
		return nil, projectID, err
	}
	return e, projectID, nil
}

func (e *env) printDocument(doc *types.ProjectProgress, withContent bool) error {
	if e.opts.asJSON {
		return e.printJSON(doc)
	}
	state := "draft"
	if doc.IsPublished {
		state = "published"
	}
	e.printf("version %d (%s), updated %s\n", doc.Version, state, doc.UpdatedAt.Format("2006-01-02 15:04"))
	if withContent {
		e.printf("\n%s", withNewline(doc.Content))
	}
	return nil
}

func (e *env) writeExport(ctx context.Context, res *client.ExportResult, outPath string) error {
	if outPath == "" {
		outPath = res.Filename
	}
	var w io.Writer = e.out
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}
	var n int64
	if res.DownloadURL != "" {
		written, err := e.client.Download(ctx, e.sess, res.DownloadURL, w)
		if err != nil {
			return describe(err)
		}
		n = written
	} else {
		written, err := io.WriteString(w, res.Content)
		if err != nil {
			return err
		}
		n = int64(written)
	}
	if outPath != "-" {
		e.printf("Wrote %s (%d bytes)\n", outPath, n)
	}
	return nil
}

var errTerminalInput = errors.New("refusing to read content from a terminal; pass --file or pipe the document in")

func readContent(file string, in io.Reader) (string, error) {
	if file == "" || file == "-" {
		if isTerminal(in) {
			return "", errTerminalInput
		}
		raw, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(raw), nil
}

// isTerminal reports whether in is an interactive terminal.
func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	_, _ = fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

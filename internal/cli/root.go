package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/taskmaster-backend/internal/client"
)

const defaultServer = "http://localhost:8080"

type options struct {
	server      string
	sessionPath string
	asJSON      bool
}

// env holds what every subcommand needs once flags are parsed.
type env struct {
	opts   *options
	out    io.Writer
	in     io.Reader
	client *client.Client
	sess   client.Session
}

// NewRootCmd builds the progressctl command tree writing to out.
func NewRootCmd(version string, in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "progressctl",
		Short:         "Manage project progress documents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetIn(in)
	root.PersistentFlags().StringVar(&opts.server, "server", os.Getenv("PROGRESSCTL_SERVER"), "API base URL (default: saved session, then "+defaultServer+")")
	root.PersistentFlags().StringVar(&opts.sessionPath, "session-file", defaultSessionPath(), "Where the login session is stored")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print raw JSON")

	root.AddCommand(
		loginCmd(opts, out),
		getCmd(opts, in, out),
		initCmd(opts, in, out),
		saveCmd(opts, in, out),
		historyCmd(opts, in, out),
		showCmd(opts, in, out),
		compareCmd(opts, in, out),
		restoreCmd(opts, in, out),
		publishCmd(opts, in, out, true),
		publishCmd(opts, in, out, false),
		statsCmd(opts, in, out),
		exportCmd(opts, in, out),
		deleteCmd(opts, in, out),
	)
	return root
}

// authed resolves the server and saved session for a command that needs one.
func authed(opts *options, in io.Reader, out io.Writer) (*env, error) {
	saved, err := loadSession(opts.sessionPath)
	if err != nil {
		return nil, err
	}
	if saved == nil || saved.AccessToken == "" {
		return nil, errNotLoggedIn
	}
	server := opts.server
	if server == "" {
		server = saved.Server
	}
	if server == "" {
		server = defaultServer
	}
	c, err := client.New(server)
	if err != nil {
		return nil, err
	}
	return &env{opts: opts, out: out, in: in, client: c, sess: saved.session()}, nil
}

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *env) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.out, format, args...)
}

func parseProjectID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid project id %q", raw)
	}
	return id, nil
}

func parseVersion(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid version %q", raw)
	}
	return v, nil
}

// describe turns client errors into one-line messages for the terminal.
func describe(err error) error {
	switch {
	case err == nil:
		return nil
	case client.IsNotFound(err):
		return fmt.Errorf("not found: %w", err)
	case client.IsConflict(err):
		return fmt.Errorf("the document changed since you loaded it; fetch it again and retry: %w", err)
	case client.IsAuth(err):
		return fmt.Errorf("not allowed (is your session still valid?): %w", err)
	default:
		return err
	}
}

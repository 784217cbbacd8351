// Package commands implements the memorialctl command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/simp-lee/logger"
	"github.com/spf13/cobra"

	"github.com/simp-lee/memorial/internal/client"
	"github.com/simp-lee/memorial/internal/config"
)

const (
	defaultAPIURL = "http://localhost:8080"
	apiURLEnv     = "MEMORIAL_API_URL"
)

// BuildInfo identifies the binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// globalOptions holds the persistent flags.
type globalOptions struct {
	apiURL    string
	tokenFile string
	timeout   time.Duration
	verbose   bool
}

// cli carries what every command needs once the persistent flags are parsed.
type cli struct {
	opts    globalOptions
	log     *logger.Logger
	store   client.TokenStore
	session *client.Session
	state   *client.StateProvider
}

// Run builds the command tree, executes it with args and releases what the
// commands opened.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, info BuildInfo) error {
	c := &cli{}
	defer c.close()

	root := c.rootCommand(info)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)

	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.RequestID != "" && c.log != nil {
		c.log.Logger.DebugContext(ctx, "request failed", "request_id", apiErr.RequestID, "status", apiErr.StatusCode)
	}
	return err
}

func (c *cli) rootCommand(info BuildInfo) *cobra.Command {
	apiURL := os.Getenv(apiURLEnv)
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	cmd := &cobra.Command{
		Use:   "memorialctl",
		Short: "Command line client for the memorial registry",
		Long: `memorialctl talks to a memorial registry server.

It signs in, keeps the token in a local credentials file and manages
obituaries: listing, searching, creating, updating, deleting and drafting
biographies from key facts.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&c.opts.apiURL, "api-url", apiURL, "Registry server URL (env "+apiURLEnv+")")
	cmd.PersistentFlags().StringVar(&c.opts.tokenFile, "token-file", "", "Credentials file (default: user config dir)")
	cmd.PersistentFlags().DurationVar(&c.opts.timeout, "timeout", client.DefaultTimeout, "Request timeout")
	cmd.PersistentFlags().BoolVarP(&c.opts.verbose, "verbose", "v", false, "Log each API request to stderr")

	cmd.AddCommand(
		c.newLoginCommand(),
		c.newLogoutCommand(),
		c.newRegisterCommand(),
		c.newWhoamiCommand(),
		c.newListCommand(),
		c.newGetCommand(),
		c.newCreateCommand(),
		c.newUpdateCommand(),
		c.newDeleteCommand(),
		c.newSearchCommand(),
		c.newGenerateBioCommand(),
		newVersionCommand(info),
	)

	return cmd
}

// setup builds the logger, token store and session from the persistent flags.
func (c *cli) setup(stderr io.Writer) error {
	level := "warn"
	if c.opts.verbose {
		level = "debug"
	}
	color := false
	log, err := config.NewLogger(
		&config.LogConfig{Level: level, Format: "text", Color: &color},
		logger.WithConsoleWriter(stderr),
	)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	c.log = log

	path := c.opts.tokenFile
	if path == "" {
		path, err = client.DefaultTokenPath()
		if err != nil {
			return err
		}
	}
	c.store = client.NewFileTokenStore(path)

	api, err := client.New(client.Options{
		BaseURL: c.opts.apiURL,
		Timeout: c.opts.timeout,
		Logger:  log.Logger,
	})
	if err != nil {
		return err
	}
	c.session = client.NewSession(api, c.store)
	c.state = client.NewStateProvider(c.store)
	return nil
}

func (c *cli) close() {
	if c.log != nil {
		_ = c.log.Close()
	}
}

// credential returns the stored credential or a hint to sign in.
func (c *cli) credential(ctx context.Context) (*client.Credential, error) {
	cred, err := c.session.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: run 'memorialctl login' first", err)
	}
	return cred, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/use-agent/cfmarkdown/client"
	"github.com/use-agent/cfmarkdown/config"
	"github.com/use-agent/cfmarkdown/credentials"
	"github.com/use-agent/cfmarkdown/models"
	"github.com/use-agent/cfmarkdown/provider"
)

type options struct {
	accountID string
	apiToken  string
	serverURL string
	accessKey string
	copy      bool
	output    string
	backend   string
	storePath string
	verbose   bool
}

func main() {
	cfg := config.Load()
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "cfmarkdown <url> [flags]",
		Short: "Extract Markdown from a web page via Cloudflare Browser Rendering",
		Long: heredoc.Doc(`
			Render a page with Cloudflare's Browser Rendering API, through a cfmarkdown
			server, and print the extracted Markdown.

			The account ID and API token are remembered after each submission and
			reused when the flags are omitted.
		`),
		Example: heredoc.Doc(`
			$ cfmarkdown https://example.com --account-id 0123abcd --api-token XXXX
			$ cfmarkdown https://example.com --copy
			$ cfmarkdown https://example.com -o example.md --server http://localhost:3000
		`),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			initLogger(opts.verbose)
			url := ""
			if len(args) > 0 {
				url = args[0]
			}
			err := runScrape(c.Context(), cfg, opts, url, c.OutOrStdout(), c.ErrOrStderr())
			if err != nil {
				fmt.Fprintln(c.ErrOrStderr(), "Error:", err)
			}
			return err
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.backend, "credentials-backend", cfg.Client.CredentialsBackend, "Where to remember credentials: file, sqlite or memory")
	f.StringVar(&opts.storePath, "credentials-path", cfg.Client.CredentialsPath, "Credentials storage location (default: per-user config dir)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.Flags().StringVar(&opts.accountID, "account-id", "", "Cloudflare account ID (default: remembered value)")
	cmd.Flags().StringVar(&opts.apiToken, "api-token", "", "Cloudflare API token (default: remembered value)")
	cmd.Flags().StringVar(&opts.serverURL, "server", cfg.Client.ServerURL, "cfmarkdown server URL")
	cmd.Flags().StringVar(&opts.accessKey, "access-key", os.Getenv("CFMD_ACCESS_KEY"), "Access key for a server with auth enabled")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "Copy the Markdown to the clipboard")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the Markdown to a file instead of stdout")

	cmd.AddCommand(newCredentialsCmd(opts))
	return cmd
}

func newCredentialsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "credentials",
		Short: "Show the remembered account ID and (masked) API token",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			store, err := credentials.Open(opts.backend, opts.storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			creds, ok, err := store.Load(c.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(c.OutOrStdout(), "No credentials remembered.")
				return nil
			}
			fmt.Fprintf(c.OutOrStdout(), "Account ID: %s\nAPI token:  %s\n",
				creds.AccountID, provider.MaskToken(creds.APIToken))
			return nil
		},
	}
}

// runScrape writes the Markdown to stdout (or opts.output) and progress to stderr.
func runScrape(ctx context.Context, cfg *config.Config, opts *options, url string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	store, err := credentials.Open(opts.backend, opts.storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	mediator := client.NewMediatorClient(opts.serverURL, cfg.Client.Timeout, client.WithAccessKey(opts.accessKey))
	session := client.NewSession(mediator, store, client.WithObserver(func(st client.State) {
		if st.Phase == client.Loading {
			fmt.Fprintf(stderr, "Extracting %s ...\n", url)
		}
	}))

	saved, err := session.Restore(ctx)
	if err != nil {
		slog.Warn("could not read remembered credentials", "error", err)
	}
	req := models.ScrapeRequest{
		URL:       url,
		AccountID: firstNonEmpty(opts.accountID, saved.AccountID),
		APIToken:  firstNonEmpty(opts.apiToken, saved.APIToken),
	}

	st, err := session.Submit(ctx, req)
	if err != nil {
		return err
	}
	if st.Phase == client.Failed {
		return errors.New(st.Message)
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(st.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.output, err)
		}
		fmt.Fprintf(stderr, "Saved %d bytes to %s\n", len(st.Content), opts.output)
	} else {
		fmt.Fprint(stdout, st.Content)
	}

	if opts.copy {
		if err := session.Copy(); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintln(stderr, "Copied to clipboard.")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// initLogger sends CLI diagnostics to stderr so stdout stays pure Markdown.
func initLogger(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

package cli

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/siete/assetforge/pkg/config"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/integrations/canva"
	"github.com/siete/assetforge/pkg/store"
)

// connectTimeout bounds how long connect waits for the browser flow.
const connectTimeout = 5 * time.Minute

// canvaOptions selects whose Canva credentials a command uses.
type canvaOptions struct {
	orgID string
	token string
}

func (o *canvaOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.orgID, "org", "", "organization whose stored Canva connection to use")
	cmd.Flags().StringVar(&o.token, "token", "", "Canva access token (overrides --org)")
}

// canvaCommand creates the canva command with subcommands.
func (c *CLI) canvaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canva",
		Short: "Canva integration commands",
		Long: `Connect organizations to Canva and browse their brand templates.

Connections are made through the OAuth flow served by 'assetforge serve' and
stored in the organization's canva_config.`,
	}

	cmd.AddCommand(c.canvaConnectCommand())
	cmd.AddCommand(c.canvaWhoamiCommand())
	cmd.AddCommand(c.canvaDisconnectCommand())
	cmd.AddCommand(c.canvaTemplatesCommand())
	cmd.AddCommand(c.canvaDatasetCommand())

	return cmd
}

// canvaConnectCommand opens the server's authorize endpoint and waits for the
// connection to land in the store.
func (c *CLI) canvaConnectCommand() *cobra.Command {
	var orgID, server string
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect an organization to Canva",
		Long: `Start the Canva OAuth flow for an organization.

The authorization URL of the running server is opened in the browser. When
the store is shared with the server (mongo), the command waits until the
connection is saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := errors.ValidateID(orgID); err != nil {
				return err
			}
			cfg, err := c.config()
			if err != nil {
				return err
			}
			base := firstNonEmpty(server, cfg.Storage.BaseURL)
			authURL := strings.TrimRight(base, "/") + "/api/canva/authorize?" + url.Values{"org_id": {orgID}}.Encode()

			printNewline()
			fmt.Println(StyleTitle.Render("Canva Authorization"))
			printNewline()
			printKeyValue("Org", orgID)
			printKeyValue("URL", StyleLink.Render(authURL))
			printNewline()

			if cfg.Store.Backend != config.BackendMongo {
				if err := openBrowser(authURL); err != nil {
					printDetail("Copy the URL above and paste it in your browser")
				}
				printDetail("The %s store is not shared with the server; check the server log for the result", cfg.Store.Backend)
				return nil
			}

			a, err := c.openApp(ctx, appOptions{needStore: true})
			if err != nil {
				return err
			}
			defer a.Close()
			var prev canva.Credentials
			_ = a.store.OrgConfig(ctx, orgID, store.ConfigCanva, &prev)

			if err := openBrowser(authURL); err != nil {
				printDetail("Copy the URL above and paste it in your browser")
			} else {
				printDetail("Opening browser...")
			}
			spinner := newSpinnerWithContext(ctx, "Waiting for authorization...")
			spinner.Start()
			creds, err := waitForCanva(ctx, a.store, orgID, prev.AccessToken, 2*time.Second, func(waited time.Duration) {
				spinner.SetMessage(fmt.Sprintf("Waiting for authorization (%s)...", waited.Round(time.Second)))
			})
			spinner.Stop()
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}
			printSuccess("Connected %s to Canva as %s", orgID, firstNonEmpty(creds.DisplayName, creds.UserID, "unknown user"))
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "organization to connect (required)")
	cmd.Flags().StringVar(&server, "server", "", "server base URL (default: storage.base_url)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

// waitForCanva polls the store until the org holds an access token other
// than prev. tick, when set, is called after every unsuccessful poll.
func waitForCanva(ctx context.Context, s store.Store, orgID, prev string, interval time.Duration, tick func(time.Duration)) (*canva.Credentials, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		var creds canva.Credentials
		err := s.OrgConfig(ctx, orgID, store.ConfigCanva, &creds)
		switch {
		case err == nil && creds.AccessToken != "" && creds.AccessToken != prev:
			return &creds, nil
		case err != nil && !errors.Is(err, errors.ErrCodeNotFound):
			return nil, err
		}
		if tick != nil {
			tick(time.Since(start))
		}
		select {
		case <-ctx.Done():
			if ctx.Err() == context.Canceled {
				return nil, ctx.Err()
			}
			return nil, errors.New(errors.ErrCodeTimeout, "no Canva connection for %s after %s", orgID, connectTimeout)
		case <-ticker.C:
		}
	}
}

func (c *CLI) canvaWhoamiCommand() *cobra.Command {
	opts := canvaOptions{}
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the Canva user behind a connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client, creds, done, err := c.canvaClient(ctx, opts)
			if err != nil {
				return err
			}
			defer done()

			spinner := newSpinnerWithContext(ctx, "Verifying connection...")
			spinner.Start()
			me, err := client.Me(ctx)
			if err != nil {
				spinner.StopWithError("Connection invalid")
				return err
			}
			spinner.Stop()

			printSuccess("Canva Connection")
			printKeyValue("User", me.UserID)
			printKeyValue("Team", me.TeamID)
			if me.DisplayName != "" {
				printKeyValue("Name", me.DisplayName)
			}
			if creds != nil && creds.ExpiresAt > 0 {
				printKeyValue("Expires", time.Unix(int64(creds.ExpiresAt), 0).Format(time.RFC822))
			}
			return nil
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func (c *CLI) canvaDisconnectCommand() *cobra.Command {
	var orgID string
	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Remove an organization's stored Canva credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := errors.ValidateID(orgID); err != nil {
				return err
			}
			a, err := c.openApp(ctx, appOptions{needStore: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.SetOrgConfig(ctx, orgID, store.ConfigCanva, canva.Credentials{}); err != nil {
				return fmt.Errorf("clear canva config: %w", err)
			}
			printSuccess("Disconnected %s from Canva", orgID)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "organization to disconnect (required)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

// canvaTemplatesCommand lists brand templates, optionally letting the user
// pick one to inspect its autofill dataset.
func (c *CLI) canvaTemplatesCommand() *cobra.Command {
	opts := canvaOptions{}
	var refresh, interactive bool
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List Canva brand templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, _, done, err := c.canvaClient(ctx, opts)
			if err != nil {
				return err
			}
			defer done()

			spinner := newSpinnerWithContext(ctx, "Fetching brand templates...")
			spinner.Start()
			list, err := client.BrandTemplates(ctx, refresh)
			spinner.Stop()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				printInfo("No brand templates found")
				return nil
			}

			rows := make([][]string, len(list))
			for i, t := range list {
				rows[i] = []string{t.Title, t.ID}
			}
			if !interactive {
				printTable([]string{"Title", "ID"}, rows)
				return nil
			}

			idx, err := pick(NewPickerModel("Select Brand Template", []string{"Title", "ID"}, rows))
			if err != nil || idx < 0 {
				return err
			}
			return printDataset(ctx, client, list[idx].ID)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached template list")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick a template and show its dataset")
	return cmd
}

func (c *CLI) canvaDatasetCommand() *cobra.Command {
	opts := canvaOptions{}
	cmd := &cobra.Command{
		Use:   "dataset <template-id>",
		Short: "Show the autofill fields of a brand template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, _, done, err := c.canvaClient(ctx, opts)
			if err != nil {
				return err
			}
			defer done()
			return printDataset(ctx, client, args[0])
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func printDataset(ctx context.Context, client *canva.Client, templateID string) error {
	fields, err := client.Dataset(ctx, templateID)
	if err != nil {
		return err
	}
	printSuccess("Dataset of %s", templateID)
	if len(fields) == 0 {
		printDetail("Template has no autofill fields")
		return nil
	}
	rows := make([][]string, len(fields))
	for i, f := range fields {
		rows[i] = []string{f.Name, f.Type}
	}
	printTable([]string{"Field", "Type"}, rows)
	return nil
}

// canvaClient resolves an access token from --token or the org's stored
// connection, refreshing and saving it when it has expired. done releases
// the app opened for the lookup.
func (c *CLI) canvaClient(ctx context.Context, opts canvaOptions) (*canva.Client, *canva.Credentials, func(), error) {
	a, err := c.openApp(ctx, appOptions{needStore: opts.token == ""})
	if err != nil {
		return nil, nil, nil, err
	}
	if opts.token != "" {
		return canva.NewClient(opts.token, a.cache), nil, a.Close, nil
	}
	if opts.orgID == "" {
		a.Close()
		return nil, nil, nil, errors.New(errors.ErrCodeInvalidInput, "either --org or --token is required")
	}

	var creds canva.Credentials
	if err := a.store.OrgConfig(ctx, opts.orgID, store.ConfigCanva, &creds); err != nil {
		a.Close()
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, nil, nil, errors.New(errors.ErrCodeUnauthorized,
				"%s is not connected to Canva (run 'assetforge canva connect --org %s')", opts.orgID, opts.orgID)
		}
		return nil, nil, nil, err
	}
	token, updated, err := a.oauth.ValidToken(ctx, creds)
	if err != nil {
		a.Close()
		return nil, nil, nil, err
	}
	if updated != nil {
		if err := a.store.SetOrgConfig(ctx, opts.orgID, store.ConfigCanva, updated); err != nil {
			c.Logger.Warn("save refreshed canva token", "org", opts.orgID, "error", err)
		}
		creds = *updated
	}
	return canva.NewClient(token, a.cache), &creds, a.Close, nil
}

// openBrowser opens an http(s) URL or a local file in the default browser.
func openBrowser(target string) error {
	parsed, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https", "file":
	default:
		return fmt.Errorf("URL scheme must be http, https or file, got %q", parsed.Scheme)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux":
		cmd = exec.Command("xdg-open", target)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", target)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

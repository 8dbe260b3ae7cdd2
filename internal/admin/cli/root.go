package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/observability"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose       bool
	Format        string // "json" | "text"
	APIURL        string
	Token         string
	SessionCookie string
	SessionValue  string
	Timeout       time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for crmctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "crmctl",
		Short: "Inspect and maintain the travel CRM from the terminal",
		Long: `crmctl reads and maintains CRM records through the same module registry the admin
console uses. Tables are searched, sorted and paged with the console's view rules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.APIURL, "api", os.Getenv("CRM_API_BASE_URL"), "CRM API base URL")
	flags.StringVar(&opts.Token, "token", os.Getenv("CRM_API_TOKEN"), "bearer token for the CRM API")
	flags.StringVar(&opts.SessionCookie, "session-cookie", os.Getenv("CRM_API_SESSION_COOKIE"), "name of the CRM session cookie")
	flags.StringVar(&opts.SessionValue, "session", os.Getenv("CRM_API_SESSION"), "value of the CRM session cookie")
	flags.DurationVar(&opts.Timeout, "timeout", 15*time.Second, "per-request timeout")

	cmd.AddCommand(NewModulesCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// registry builds the module registry against the configured API.
func (o *RootOptions) registry() (*crm.Registry, error) {
	if o.APIURL == "" {
		return nil, NewExitError(ExitCommandError, "no CRM API configured: pass --api or set CRM_API_BASE_URL")
	}
	var clientOpts []collection.ClientOption
	if o.SessionCookie != "" && o.SessionValue != "" {
		clientOpts = append(clientOpts, collection.WithSessionCookie(o.SessionCookie, o.SessionValue))
	}
	client, err := collection.NewClient(o.APIURL, &http.Client{Timeout: o.Timeout}, clientOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid CRM API URL", err)
	}

	logger := zap.NewNop()
	if o.Verbose {
		if l, err := observability.NewLogger("debug"); err == nil {
			logger = l
		}
	}
	reg, err := crm.NewRegistry(client, crm.WithStoreOptions(collection.WithLogger(logger)))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "registry", err)
	}
	return reg, nil
}

// module resolves key, mapping unknown keys to a command error.
func (o *RootOptions) module(key string) (crm.Module, error) {
	reg, err := o.registry()
	if err != nil {
		return nil, err
	}
	m, err := reg.Module(key)
	if err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown module %q: run crmctl modules", key))
	}
	return m, nil
}

func (o *RootOptions) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.Token != "" {
		ctx = collection.WithCredentials(ctx, collection.Credentials{Token: o.Token})
	}
	return ctx
}

// apiError maps a store failure to an exit error carrying the API's own message.
func apiError(message string, err error) error {
	return NewExitError(ExitFailure, message+": "+collection.Message(err))
}

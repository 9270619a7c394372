package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/capture"
)

// CaptureOptions holds flags for the capture command.
type CaptureOptions struct {
	*RootOptions
	Month   int
	Year    int
	URL     string
	Out     string
	Account string
	AskPass bool
}

// NewCaptureCommand creates the capture command. It screenshots the
// printable ordo page of a running server.
func NewCaptureCommand(rootOpts *RootOptions) *cobra.Command {
	now := time.Now()
	opts := &CaptureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Save the printable ordo page as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Month < 1 || opts.Month > 12 {
				return fmt.Errorf("--month must be 1-12, got %d", opts.Month)
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			base := opts.URL
			if base == "" {
				base = "http://" + cfg.Listen
			}
			out := opts.Out
			if out == "" {
				out = fmt.Sprintf("ordo-%d-%02d.png", opts.Year, opts.Month)
			}
			account := opts.Account
			if account == "" && len(cfg.Auth.Accounts) > 0 {
				account = cfg.Auth.Accounts[0].Account
			}
			password := cfg.Auth.SharedSecret
			if opts.AskPass {
				if password, err = readPassword(os.Stdin, cmd.ErrOrStderr()); err != nil {
					return err
				}
			}

			err = capture.CapturePNG(cmd.Context(), capture.Options{
				URL:        capture.PageURL(strings.TrimSuffix(base, "/"), opts.Month, opts.Year),
				OutputPath: out,
				Account:    account,
				Password:   password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Month, "month", int(now.Month()), "month (1-12)")
	cmd.Flags().IntVar(&opts.Year, "year", now.Year(), "year")
	cmd.Flags().StringVar(&opts.URL, "url", "", "server base URL (default http://<listen>)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output PNG path")
	cmd.Flags().StringVar(&opts.Account, "account", "", "account to log in with (default first configured)")
	cmd.Flags().BoolVar(&opts.AskPass, "ask-password", false, "prompt for the password instead of using the configured one")

	return cmd
}

func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--ask-password needs an interactive terminal")
	}
	fmt.Fprint(prompt, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

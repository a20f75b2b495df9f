// Command custdb is the terminal client for custdb-server.
//
// Run without arguments for the interactive "Customer DB Menu", or use one
// of the subcommands for scripted access:
//
//	custdb find Alice
//	custdb add Bob --age 41 --address "2 Oak Ave" --phone "555 123-4567"
//	custdb update-phone Bob "555 765-4321"
//	custdb list
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cachemir/custdb/internal/logging"
	"github.com/cachemir/custdb/internal/ui"
	"github.com/cachemir/custdb/pkg/client"
	"github.com/cachemir/custdb/pkg/config"
	"github.com/cachemir/custdb/pkg/store"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type app struct {
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "custdb",
		Short: "Find, add, update and list customer records",
		Long: `custdb talks to a custdb-server. Without a subcommand it starts the
interactive Customer DB Menu.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.Quiet(a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, func(c *client.Client, _ *ui.Printer) error {
				return ui.NewMenu(c, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger).Run()
			})
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log client activity to stderr")
	config.RegisterClientFlags(root.PersistentFlags())

	root.AddCommand(
		a.findCmd(),
		a.addCmd(),
		a.nameCmd("delete", "Delete a customer", (*client.Client).Delete),
		a.updateCmd("update-age", "AGE", "Replace a customer's age", (*client.Client).UpdateAge),
		a.updateCmd("update-address", "ADDRESS", "Replace a customer's address", (*client.Client).UpdateAddress),
		a.updateCmd("update-phone", "PHONE", "Replace a customer's phone", (*client.Client).UpdatePhone),
		a.listCmd(),
	)
	return root
}

// withClient loads the client configuration, connects and runs fn.
func (a *app) withClient(cmd *cobra.Command, fn func(c *client.Client, p *ui.Printer) error) error {
	cfg, err := config.LoadClientConfig(cmd.Flags())
	if err != nil {
		return err
	}

	a.logger.Debug("Connecting", zap.String("address", cfg.Address),
		zap.String("framing", cfg.Framing), zap.String("codec", cfg.Codec))
	c, err := client.Dial(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			a.logger.Debug("Error closing connection", zap.Error(err))
		}
	}()

	return fn(c, ui.NewPrinter(cmd.OutOrStdout()))
}

func (a *app) findCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find NAME",
		Short: "Show one customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(c *client.Client, p *ui.Printer) error {
				rec, err := c.Find(args[0])
				if err != nil {
					return err
				}
				p.Records([]store.Record{rec})
				return nil
			})
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	var age, address, phone string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(c *client.Client, p *ui.Printer) error {
				msg, err := c.Add(store.Record{Name: args[0], Age: store.Age(age), Address: address, Phone: phone})
				if err != nil {
					return err
				}
				p.Success(msg)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&age, "age", "", "Customer age")
	cmd.Flags().StringVar(&address, "address", "", "Customer address")
	cmd.Flags().StringVar(&phone, "phone", "", "Customer phone in XXX XXX-XXXX format")
	return cmd
}

func (a *app) nameCmd(use, short string, op func(c *client.Client, name string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(c *client.Client, p *ui.Printer) error {
				msg, err := op(c, args[0])
				if err != nil {
					return err
				}
				p.Success(msg)
				return nil
			})
		},
	}
}

func (a *app) updateCmd(use, value, short string, op func(c *client.Client, name, value string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME " + value,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(c *client.Client, p *ui.Printer) error {
				msg, err := op(c, args[0], args[1])
				if err != nil {
					return err
				}
				p.Success(msg)
				return nil
			})
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every customer sorted by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(cmd, func(c *client.Client, p *ui.Printer) error {
				recs, err := c.List()
				if err != nil {
					return err
				}
				p.Records(recs)
				return nil
			})
		},
	}
}

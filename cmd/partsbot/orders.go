package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/m3rciful/partsbot/core/bootstrap"
	coreconfig "github.com/m3rciful/partsbot/core/config"
	"github.com/m3rciful/partsbot/internal/app"
	"github.com/m3rciful/partsbot/internal/config"
	"github.com/m3rciful/partsbot/internal/orders"
)

func newOrdersCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect stored orders",
	}
	cmd.AddCommand(newOrdersExportCmd(flags))
	cmd.AddCommand(newOrdersListCmd(flags))
	return cmd
}

func newOrdersExportCmd(flags *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all orders as a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			store, err := openStore(flags)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return orders.Encode(cmd.OutOrStdout(), snap)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("close %s: %w", out, cerr)
				}
			}()
			return orders.Encode(f, snap)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newOrdersListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list <customer-id>",
		Short: "Print one customer's orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid customer id %q", args[0])
			}
			store, err := openStore(flags)
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.List(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeOrderTable(cmd.OutOrStdout(), list)
		},
	}
}

func openStore(flags *rootFlags) (orders.Store, error) {
	path, err := flags.resolveConfig()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadStorage(path)
	if err != nil {
		return nil, err
	}
	// the running bot may own the document; read it without moving it aside
	if cfg.Storage.Driver == config.StorageFile || cfg.Storage.Driver == "" {
		s, err := orders.ReadFile(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	// logs stay on the standard logger so stdout carries only command output
	res, err := bootstrap.Run(bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.DatabaseConfig(),
		Migrations: orders.Migrations,
		LoggerInit: func(*coreconfig.Config) error { return nil },
	})
	if err != nil {
		return nil, err
	}
	return app.OpenStore(cfg, res.DB)
}

func writeOrderTable(w io.Writer, list []orders.Order) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no orders")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCREATED\tCAR\tPARTS\tCITY\tCLAIMED BY")
	for _, o := range list {
		claimed := "-"
		if o.ClaimedBy != 0 {
			claimed = strconv.FormatInt(o.ClaimedBy, 10)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.RequestID, o.Status, o.CreatedAt.UTC().Format("2006-01-02 15:04"),
			oneLine(o.Car), oneLine(o.Parts), oneLine(o.City), claimed)
	}
	return tw.Flush()
}

func oneLine(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == '\n' || r == '\t' {
			out[i] = ' '
		}
	}
	return string(out)
}

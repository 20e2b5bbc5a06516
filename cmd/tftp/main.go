// Command tftp is a TFTP (RFC 1350) client with get and put subcommands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/eahydra/gotftp"
	"github.com/eahydra/gotftp/fsstore"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var addr string

	root := &cobra.Command{
		Use:   "tftp",
		Short: "Transfer files to/from a TFTP server",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "", "remote TFTP server address, host:69")
	root.MarkPersistentFlagRequired("addr")

	get := &cobra.Command{
		Use:   "get <remote-file> [local-file]",
		Short: "Download a file from the server",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote := args[0]
			local := remote
			if len(args) == 2 {
				local = args[1]
			}

			client, err := gotftp.NewClient(addr, clockwork.NewRealClock(), logrus.NewEntry(logrus.StandardLogger()))
			if err != nil {
				return err
			}

			w, err := fsstore.Create(local)
			if err != nil {
				return err
			}
			if err := client.Get(context.Background(), remote, w, nil); err != nil {
				w.Cancel()
				return err
			}
			return nil
		},
	}

	put := &cobra.Command{
		Use:   "put <local-file> [remote-file]",
		Short: "Upload a file to the server",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			local := args[0]
			remote := local
			if len(args) == 2 {
				remote = args[1]
			}

			client, err := gotftp.NewClient(addr, clockwork.NewRealClock(), logrus.NewEntry(logrus.StandardLogger()))
			if err != nil {
				return err
			}

			r, err := fsstore.Open(local)
			if err != nil {
				return err
			}
			defer r.Close()
			return client.Put(context.Background(), remote, r, nil)
		},
	}

	root.AddCommand(get, put)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

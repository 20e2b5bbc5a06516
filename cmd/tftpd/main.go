// Command tftpd serves files from a root directory over TFTP (RFC 1350).
package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eahydra/gotftp"
	"github.com/eahydra/gotftp/fsstore"
	"github.com/eahydra/gotftp/store"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootHandler implements gotftp.FileHandler over a single served directory,
// rejecting any filename that would resolve outside of it.
type rootHandler struct {
	root string
}

func (h *rootHandler) resolve(filename string) (string, error) {
	clean := filepath.Clean("/" + filename)
	full := filepath.Join(h.root, clean)
	if !strings.HasPrefix(full, filepath.Clean(h.root)+string(os.PathSeparator)) && full != filepath.Clean(h.root) {
		return "", store.ErrAccessViolation
	}
	return full, nil
}

func (h *rootHandler) OpenReader(remoteAddr net.Addr, filename string) (store.Reader, error) {
	full, err := h.resolve(filename)
	if err != nil {
		return nil, err
	}
	return fsstore.Open(full)
}

func (h *rootHandler) OpenWriter(remoteAddr net.Addr, filename string) (store.Writer, error) {
	full, err := h.resolve(filename)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, err
	}
	return fsstore.Create(full)
}

func main() {
	var (
		addr        string
		root        string
		readTimeout time.Duration
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "tftpd",
		Short: "Serve files over TFTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger := logrus.New()
			logger.SetLevel(level)
			entry := logrus.NewEntry(logger)

			absRoot, err := filepath.Abs(root)
			if err != nil {
				return err
			}

			srv, err := gotftp.NewServer(addr, &rootHandler{root: absRoot}, readTimeout, clockwork.NewRealClock(), entry)
			if err != nil {
				return err
			}
			defer srv.Close()

			entry.WithFields(logrus.Fields{"addr": addr, "root": absRoot}).Info("tftpd listening")
			return srv.Run()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":69", "UDP address to listen on")
	cmd.Flags().StringVar(&root, "root", ".", "directory to serve")
	cmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "accept-loop read deadline (0 disables)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "logrus level: debug, info, warn, error")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package network

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// commandRunner runs an external command and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NMCLILink joins a Wi-Fi network through NetworkManager.
type NMCLILink struct {
	ssid       string
	passphrase string
	run        commandRunner
	log        zerolog.Logger
}

// NewNMCLILink creates a link for the given network credentials.
func NewNMCLILink(ssid, passphrase string, log zerolog.Logger) *NMCLILink {
	return &NMCLILink{ssid: ssid, passphrase: passphrase, run: execRunner, log: log}
}

// Connect joins the network. nmcli's own wait is capped to the context
// deadline so the command gives up before it is killed.
func (l *NMCLILink) Connect(ctx context.Context) error {
	if l.ssid == "" {
		return errors.New("nmcli: no ssid configured")
	}

	args := []string{}
	if deadline, ok := ctx.Deadline(); ok {
		secs := int(math.Ceil(time.Until(deadline).Seconds()))
		if secs < 1 {
			secs = 1
		}
		args = append(args, "--wait", strconv.Itoa(secs))
	}
	args = append(args, "device", "wifi", "connect", l.ssid)
	if l.passphrase != "" {
		args = append(args, "password", l.passphrase)
	}

	out, err := l.run(ctx, "nmcli", args...)
	if err != nil {
		return fmt.Errorf("nmcli connect %q: %w: %s", l.ssid, err, strings.TrimSpace(string(out)))
	}
	l.log.Debug().Str("output", strings.TrimSpace(string(out))).Msg("nmcli connect")
	return nil
}

// Disconnect brings the connection down.
func (l *NMCLILink) Disconnect() error {
	if l.ssid == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := l.run(ctx, "nmcli", "connection", "down", "id", l.ssid)
	if err != nil {
		return fmt.Errorf("nmcli disconnect %q: %w: %s", l.ssid, err, strings.TrimSpace(string(out)))
	}
	return nil
}

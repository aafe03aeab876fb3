package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rlegacy/launcher/internal/logging"
)

const (
	DefaultJava      = "java"
	DefaultMainClass = "client.Client"
)

// ErrNoClientFiles means the client has never been downloaded, or was removed.
var ErrNoClientFiles = errors.New("client files not found")

// Launcher starts the downloaded client.
type Launcher struct {
	Java       string
	MainClass  string
	ClientDir  string
	ClientJar  string
	RuntimeJar string

	// commandFunc builds the process; tests replace it.
	commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// Classpath joins the client and runtime artifacts in load order.
func (l *Launcher) Classpath() (string, error) {
	client, err := filepath.Abs(l.ClientJar)
	if err != nil {
		return "", err
	}
	runtime, err := filepath.Abs(l.RuntimeJar)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{client, runtime}, string(os.PathListSeparator)), nil
}

// Command returns the process that Launch would start, without starting it.
func (l *Launcher) Command(ctx context.Context) (*exec.Cmd, error) {
	for _, p := range []string{l.ClientJar, l.RuntimeJar} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNoClientFiles, p)
			}
			return nil, fmt.Errorf("checking %s: %w", p, err)
		}
	}

	cp, err := l.Classpath()
	if err != nil {
		return nil, fmt.Errorf("building classpath: %w", err)
	}

	java := l.Java
	if java == "" {
		java = DefaultJava
	}
	mainClass := l.MainClass
	if mainClass == "" {
		mainClass = DefaultMainClass
	}

	newCmd := l.commandFunc
	if newCmd == nil {
		newCmd = exec.CommandContext
	}
	cmd := newCmd(ctx, java, "-cp", cp, mainClass)
	cmd.Dir = l.ClientDir
	return cmd, nil
}

// Launch starts the client and returns once the process is running. It does
// not wait for the client to exit.
func (l *Launcher) Launch(ctx context.Context) (*os.Process, error) {
	cmd, err := l.Command(ctx)
	if err != nil {
		return nil, err
	}
	logging.Debugf("Verbose: launching %s in %s\n", strings.Join(cmd.Args, " "), cmd.Dir)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting client: %w", err)
	}
	return cmd.Process, nil
}

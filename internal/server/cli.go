package server

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	ssh "github.com/gliderlabs/ssh"
	"github.com/sirupsen/logrus"

	cryptossh "golang.org/x/crypto/ssh"

	"github.com/aws/clock-bound/internal/config"
	"github.com/aws/clock-bound/internal/testhooks"
)

// CLIServer is the SSH debug console (SPEC_FULL.md §4.12): status,
// force-disruption and clear-disruption wired to internal/testhooks, and
// quit.
type CLIServer struct {
	config config.SSHConfig
	view   *StatusView
	hooks  *testhooks.Hooks
	logger *logrus.Logger
	server *ssh.Server

	mu             sync.Mutex
	activeSessions int
	authorizedKeys map[string]cryptossh.PublicKey
}

// NewCLIServer builds a CLIServer backed by view and hooks.
func NewCLIServer(cfg config.SSHConfig, view *StatusView, hooks *testhooks.Hooks, logger *logrus.Logger) *CLIServer {
	return &CLIServer{
		config:         cfg,
		view:           view,
		hooks:          hooks,
		logger:         logger,
		authorizedKeys: map[string]cryptossh.PublicKey{},
	}
}

// Start runs the SSH server until Stop is called.
func (s *CLIServer) Start() error {
	if s.config.AuthorizedKeys != "" {
		if err := s.loadAuthorizedKeys(s.config.AuthorizedKeys); err != nil {
			s.logger.WithError(err).Warn("failed to load authorized_keys file")
		}
	}

	hostKey, err := loadOrGenerateHostKey(s.config.ServerKey)
	if err != nil {
		return fmt.Errorf("failed to prepare SSH host key: %w", err)
	}

	srv := &ssh.Server{
		Addr:             s.config.BindAddr,
		Handler:          s.handleSession,
		PublicKeyHandler: s.handlePublicKey,
	}
	srv.AddHostKey(hostKey)
	s.server = srv

	s.logger.WithField("addr", s.config.BindAddr).Info("starting debug console")
	return s.server.ListenAndServe()
}

// Stop closes the SSH server's listener.
func (s *CLIServer) Stop() error {
	s.logger.Info("stopping debug console")
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func (s *CLIServer) handlePublicKey(ctx ssh.Context, key ssh.PublicKey) bool {
	if len(s.authorizedKeys) == 0 {
		return false
	}
	fingerprint := cryptossh.FingerprintSHA256(key)
	_, ok := s.authorizedKeys[fingerprint]
	return ok
}

func (s *CLIServer) handleSession(sess ssh.Session) {
	user := sess.User()
	s.logger.WithField("user", user).Info("debug console session started")

	io.WriteString(sess, "clockbound debug console\n")
	io.WriteString(sess, fmt.Sprintf("time: %s\n\n", time.Now().Format(time.RFC3339)))

	scanner := bufio.NewScanner(sess)
	for {
		io.WriteString(sess, "clockbound> ")
		if !scanner.Scan() {
			break
		}
		command := strings.TrimSpace(scanner.Text())
		if command == "exit" || command == "quit" {
			io.WriteString(sess, "goodbye\n")
			break
		}
		s.handleCommand(sess, command)
	}

	s.logger.WithField("user", user).Info("debug console session ended")
}

func (s *CLIServer) handleCommand(sess ssh.Session, command string) {
	switch command {
	case "status":
		s.handleStatusCommand(sess)
	case "force-disruption":
		s.hooks.RequestDisruption()
		io.WriteString(sess, "disruption requested\n")
	case "clear-disruption":
		s.hooks.ClearDisruption()
		io.WriteString(sess, "disruption cleared\n")
	case "help":
		s.handleHelpCommand(sess)
	case "":
	default:
		io.WriteString(sess, fmt.Sprintf("unknown command: %s\n", command))
		io.WriteString(sess, "type 'help' for available commands\n")
	}
}

func (s *CLIServer) handleStatusCommand(sess ssh.Session) {
	record, chronyStatus, disruptionState, ok := s.view.Snapshot()
	if !ok {
		io.WriteString(sess, "no record published yet\n")
		return
	}

	io.WriteString(sess, fmt.Sprintf("clock status:      %s\n", record.ClockStatus))
	io.WriteString(sess, fmt.Sprintf("chrony status:     %s\n", chronyStatus))
	io.WriteString(sess, fmt.Sprintf("disruption state:  %s\n", disruptionState))
	io.WriteString(sess, fmt.Sprintf("as_of:             %d\n", record.AsOf.Sec))
	io.WriteString(sess, fmt.Sprintf("void_after:        %d\n", record.VoidAfter.Sec))
	io.WriteString(sess, fmt.Sprintf("bound_nsec:        %d\n", record.BoundNsec))
	io.WriteString(sess, fmt.Sprintf("max_drift_ppb:     %d\n\n", record.MaxDriftPPB))
}

func (s *CLIServer) handleHelpCommand(sess ssh.Session) {
	help := `Available commands:
  status             Show the last published CEB record
  force-disruption   Force the clock-disruption FSM axis to Disrupted
  clear-disruption   Clear a forced disruption
  help               Show this help message
  exit               Exit the console

`
	io.WriteString(sess, help)
}

// loadOrGenerateHostKey reads a PEM private key from path, or generates a
// throwaway ed25519 host key when path is empty. A throwaway key means
// clients see a different host identity on every restart; fine for a debug
// console, not for anything meant to be pinned.
func loadOrGenerateHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return cryptossh.NewSignerFromSigner(priv)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cryptossh.ParsePrivateKey(data)
}

func (s *CLIServer) loadAuthorizedKeys(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pubKey, _, _, _, err := cryptossh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			s.logger.WithError(err).Warn("skipping invalid public key entry")
			continue
		}
		fp := cryptossh.FingerprintSHA256(pubKey)
		s.authorizedKeys[fp] = pubKey
	}
	return scanner.Err()
}

// Package main wires flag parsing, a connected session.Session, and a
// WebSocket preview shell into a runnable RDP client.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ravibrenner/godrp/internal/config"
	"github.com/ravibrenner/godrp/internal/logging"
	"github.com/ravibrenner/godrp/internal/session"
	"github.com/ravibrenner/godrp/internal/shell"
)

var (
	appName    = "godrp"
	appVersion = "dev" // injected at build time via -ldflags
)

func main() {
	args, action := parseFlags(os.Args[1:])
	if action != "" {
		return
	}
	if err := run(args); err != nil {
		log.Fatalln(err)
	}
}

type parsedArgs struct {
	listenAddr string
	cfg        *config.Config
}

func parseFlags(argv []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("rdpclient", flag.ContinueOnError)

	cfg := config.New()

	fs.StringVar(&cfg.Host, "host", "", "RDP server host (required)")
	port := fs.Int("port", config.DefaultPort, "RDP server port")
	fs.IntVar(&cfg.Width, "width", config.DefaultWidth, "desktop width")
	fs.IntVar(&cfg.Height, "height", config.DefaultHeight, "desktop height")
	fs.StringVar(&cfg.Domain, "windows-domain", "", "Windows domain for logon")
	fs.StringVar(&cfg.User, "user", "", "username")
	fs.StringVar(&cfg.Password, "password", "", "password")
	fs.StringVar(&cfg.Hash, "hash", "", "NT hash (32 hex chars) for pass-the-hash, instead of --password")
	fs.BoolVar(&cfg.RestrictedAdmin, "admin", false, "request restricted admin mode")
	layout := fs.String("layout", string(config.LayoutUS), "keyboard layout (us|fr)")
	fs.BoolVar(&cfg.AutoLogon, "auto", false, "auto-logon")
	fs.BoolVar(&cfg.BlankCreds, "blank", false, "connect without sending any credentials")
	fs.BoolVar(&cfg.CheckCert, "check", false, "verify the server's TLS certificate")
	disableNLA := fs.Bool("ssl", false, "use plain TLS instead of NLA/CredSSP")
	fs.StringVar(&cfg.ClientName, "name", config.DefaultClientName, "client name advertised to the server")
	fs.BoolVar(&cfg.LegacyTLS, "legacy-tls", false, "use icodeface/tls for servers that predate modern cipher suites")
	fs.StringVar(&cfg.LogLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	listen := fs.String("listen", "127.0.0.1:8080", "address the preview shell listens on")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	if err := fs.Parse(argv); err != nil {
		return parsedArgs{}, "error"
	}

	if *helpFlag {
		fs.Usage()
		return parsedArgs{}, "help"
	}
	if *versionFlag {
		fmt.Printf("%s %s\n", appName, appVersion)
		return parsedArgs{}, "version"
	}

	cfg.Port = *port
	cfg.Layout = config.Layout(*layout)
	cfg.DisableNLA = *disableNLA

	return parsedArgs{listenAddr: *listen, cfg: cfg}, ""
}

func run(args parsedArgs) error {
	cfg := args.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetLevelFromString(cfg.LogLevel)

	opts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	logging.Info("connecting to %s", addr)

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	sess, err := session.NewConnector(opts).Connect(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = sess.Shutdown() }()

	logging.Info("session established, serving preview on http://%s", args.listenAddr)

	server := &http.Server{
		Addr:    args.listenAddr,
		Handler: shell.Handler(sess),
	}

	go func() {
		<-ctx.Done()
		_ = sess.Shutdown()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func sessionOptions(cfg *config.Config) (session.Options, error) {
	var ntHash []byte
	if cfg.Hash != "" {
		decoded, err := hex.DecodeString(cfg.Hash)
		if err != nil {
			return session.Options{}, fmt.Errorf("invalid --hash: %w", err)
		}
		ntHash = decoded
	}

	return session.Options{
		Width:            cfg.Width,
		Height:           cfg.Height,
		ColorDepth:       16,
		Host:             cfg.Host,
		Domain:           cfg.Domain,
		User:             cfg.User,
		Password:         cfg.Password,
		NTHash:           ntHash,
		ClientName:       cfg.ClientName,
		RestrictedAdmin:  cfg.RestrictedAdmin,
		AutoLogon:        cfg.AutoLogon,
		BlankCreds:       cfg.BlankCreds,
		UseNLA:           !cfg.DisableNLA,
		CheckCertificate: cfg.CheckCert,
		LegacyTLS:        cfg.LegacyTLS,
	}, nil
}

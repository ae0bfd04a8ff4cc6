// Command authctl is the operator tool for the WEQ API: it creates users,
// mints and inspects tokens and purges expired revocations, using the same
// configuration as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/rryowa/weq_api/internal/app"
	"github.com/rryowa/weq_api/internal/service"
	"github.com/rryowa/weq_api/internal/util"
)

const usage = `usage: authctl <command> [flags]

commands:
  create-user   -email <email> [-name <name>]   create a user, password is prompted
  issue-token   -subject <subject> [-ttl 30m]   sign a token with the active key
  verify-token  -token <token>                  verify a token and print its claims
  purge         purge expired revocation records
`

// readPassword is replaced in tests.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func main() {
	cfg, err := util.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := util.NewZapLogger(cfg.App)

	if err := run(context.Background(), os.Args[1:], cfg, logger, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "authctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, cfg *util.Config, logger *zap.SugaredLogger, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("no command given")
	}

	switch args[0] {
	case "create-user":
		return createUser(ctx, args[1:], cfg, logger, out)
	case "issue-token":
		return issueToken(args[1:], cfg, logger, out)
	case "verify-token":
		return verifyToken(args[1:], cfg, logger, out)
	case "purge":
		return purge(ctx, cfg, logger, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func createUser(ctx context.Context, args []string, cfg *util.Config, logger *zap.SugaredLogger, out io.Writer) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	email := fs.String("email", "", "user email, also used as username")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}

	fmt.Fprint(out, "Enter password: ")
	pw, err := readPassword()
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	backends, err := app.OpenBackends(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer backends.Cleanup()

	hasher, err := service.NewPasswordHasher(cfg.Password.BcryptCost, logger)
	if err != nil {
		return err
	}
	authService := service.NewAuthService(backends.Storage, backends.Revocation, hasher, nil, nil, nil, logger)

	var namePtr *string
	if n := strings.TrimSpace(*name); n != "" {
		namePtr = &n
	}
	user, err := authService.Register(ctx, *email, *email, namePtr, string(pw))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created user %d (%s)\n", user.ID, user.Email)
	return nil
}

func issueToken(args []string, cfg *util.Config, logger *zap.SugaredLogger, out io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	subject := fs.String("subject", "", "token subject (username)")
	ttl := fs.Duration("ttl", cfg.Token.AccessTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-subject is required")
	}

	codec, err := service.NewTokenCodec(cfg.Token, logger)
	if err != nil {
		return err
	}
	token, expiresAt, err := codec.IssueWithTTL(*subject, *ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "expires at %s (kid %s)\n", expiresAt.UTC().Format(time.RFC3339), cfg.Token.ActiveKeyID)
	return nil
}

func verifyToken(args []string, cfg *util.Config, logger *zap.SugaredLogger, out io.Writer) error {
	fs := flag.NewFlagSet("verify-token", flag.ContinueOnError)
	token := fs.String("token", "", "token to verify")
	if err := fs.Parse(args); err != nil {
		return err
	}

	codec, err := service.NewTokenCodec(cfg.Token, logger)
	if err != nil {
		return err
	}
	claims, err := codec.Verify(strings.TrimSpace(*token))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "subject: %s\nkid: %s\nexpires: %s\n",
		claims.Subject, claims.KeyID, claims.ExpiresAt.UTC().Format(time.RFC3339))
	return nil
}

func purge(ctx context.Context, cfg *util.Config, logger *zap.SugaredLogger, out io.Writer) error {
	backends, err := app.OpenBackends(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer backends.Cleanup()

	if backends.Purger == nil {
		fmt.Fprintln(out, "revocation backend expires entries on its own, nothing to purge")
		return nil
	}

	n, err := service.NewRevocationSweeper(backends.Purger, time.Hour, logger).Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "purged %d expired revocations\n", n)
	return nil
}

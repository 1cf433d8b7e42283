// Command ssoctl performs operator tasks against an SSO server's stores
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: ssoctl <command> [flags]

commands:
  migrate       apply database migrations to DATABASE_URL
  create-user   create a user, prompting for the password
  genkey        generate an RSA private key for RS256 signing
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ssoctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "migrate":
		return migrateCmd(ctx, rest, out)
	case "create-user":
		return createUserCmd(ctx, rest, out)
	case "genkey":
		return genKeyCmd(rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

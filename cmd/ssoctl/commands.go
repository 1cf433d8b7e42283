package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/jrsteele09/go-sso-server/auth"
	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/store"
	"github.com/jrsteele09/go-sso-server/store/gormstore"
	"github.com/jrsteele09/go-sso-server/token/keys"
	"github.com/jrsteele09/go-sso-server/users"
)

// readPassword reads without echo; tests replace it
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func loadConfig(configFile string) (config.Config, error) {
	c, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if c.GetDatabaseURL() == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return c, nil
}

func migrateCmd(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configFile := fs.String("config", "", "yaml config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	if err := gormstore.Migrate(ctx, c.GetDatabaseURL()); err != nil {
		return err
	}
	fmt.Fprintln(out, "Migrations applied")
	return nil
}

func createUserCmd(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	configFile := fs.String("config", "", "yaml config file")
	email := fs.String("email", "", "email address")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	passwordStdin := fs.Bool("password-stdin", false, "read the password from stdin instead of prompting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := obtainPassword(*passwordStdin, os.Stdin, out)
	if err != nil {
		return err
	}

	c, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	st, err := gormstore.Open(ctx, c.GetDatabaseURL(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := createUser(ctx, st, users.NewHasher(c.GetBcryptCost()), auth.RegisterInput{
		FirstName: *firstName,
		LastName:  *lastName,
		Email:     *email,
		Password:  password,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created user %s (%s)\n", user.Email, user.ID)
	return nil
}

// createUser stores a user without starting a session for it
func createUser(ctx context.Context, tx store.Transactor, hasher *users.Hasher, in auth.RegisterInput) (*users.User, error) {
	user, err := auth.NewUser(in, hasher, time.Now())
	if err != nil {
		return nil, err
	}
	err = tx.WithinTx(ctx, func(ctx context.Context, scope store.Scope) error {
		return scope.Users().Create(ctx, user)
	})
	if apperrors.Is(err, apperrors.ErrConflict) {
		return nil, fmt.Errorf("email %s is already registered", user.Email)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func obtainPassword(fromStdin bool, stdin io.Reader, out io.Writer) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "Enter password: ")
	first, err := readPassword()
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Confirm password: ")
	second, err := readPassword()
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func genKeyCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("genkey", flag.ContinueOnError)
	keyID := fs.String("kid", "sso-1", "key id published in the JWKS")
	bits := fs.Int("bits", 2048, "RSA key size")
	path := fs.String("out", "", "file to write the PEM key to (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kp, err := keys.GenerateRSAKeyPair(*keyID, *bits)
	if err != nil {
		return err
	}
	pemKey, err := kp.ExportPrivateKeyPEM()
	if err != nil {
		return err
	}
	if *path == "" {
		fmt.Fprint(out, pemKey)
		return nil
	}
	if err := os.WriteFile(*path, []byte(pemKey), 0o600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	fmt.Fprintf(out, "Wrote key %s to %s; set TOKEN_ALGORITHM=RS256 TOKEN_KEY_FILE=%s TOKEN_KEY_ID=%s\n", *keyID, *path, *path, *keyID)
	return nil
}

package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/edvin/oportunia/internal/config"
	"github.com/edvin/oportunia/internal/core"
	"github.com/edvin/oportunia/internal/crypto"
	"github.com/edvin/oportunia/internal/model"
)

// runCommand runs a helper subcommand. handled is false when name is not
// a subcommand and the server should start instead.
func runCommand(name string, args []string, stdout, stderr io.Writer) (handled bool, code int) {
	var err error
	switch name {
	case "generate-key":
		err = generateKey(stdout)
	case "hash-password":
		err = hashPassword(args, stdout, stderr)
	case "issue-token":
		err = issueToken(args, stdout, stderr)
	default:
		return false, 0
	}
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return true, 1
	}
	return true, 0
}

func generateKey(stdout io.Writer) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hex.EncodeToString(key))
	return nil
}

func hashPassword(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(stderr)
	password := fs.String("password", "", "Admin password to hash (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		return errors.New("usage: oportunia-api hash-password --password <password>")
	}

	hash, err := core.HashPassword(*password)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hash)
	return nil
}

func issueToken(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("sub", "", "User id (required)")
	role := fs.String("role", model.RoleUser, "Role claim")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("usage: oportunia-api issue-token --sub <user-id> [--role user|admin]")
	}
	if *role != model.RoleUser && *role != model.RoleAdmin {
		return fmt.Errorf("unknown role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}

	token, err := core.NewAuthService(cfg.JWTSecret, cfg.JWTIssuer, "", "").IssueToken(*subject, "", *role)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

// Command culturetix-token mints a bearer token signed with JWT_SECRET.
//
//	JWT_SECRET=... culturetix-token -sub organizer@example.org -role ORGANIZER -ttl 2h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirinyoku/culturetix/internal/auth"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "culturetix-token:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("culturetix-token", flag.ContinueOnError)
	sub := fs.String("sub", "", "token subject (required)")
	role := fs.String("role", string(auth.RoleUser), "USER, ORGANIZER or ADMIN")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	issuer := fs.String("issuer", envOr("JWT_ISSUER", "culturetix"), "token issuer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *sub == "" {
		return fmt.Errorf("-sub is required")
	}

	r, err := auth.ParseRole(*role)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokens(os.Getenv("JWT_SECRET"), *issuer, *ttl)
	if err != nil {
		return err
	}

	raw, exp, err := tokens.Issue(*sub, r)
	if err != nil {
		return err
	}

	fmt.Println(raw)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

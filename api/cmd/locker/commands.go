package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/irgordon/locker/api/internal/client"
	"github.com/irgordon/locker/api/internal/infrastructure/crypto"
)

func cmdSeal(args []string) error {
	fs := flag.NewFlagSet("seal", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	plaintext, err := readInput("Plaintext: ")
	if err != nil {
		return err
	}
	secret, err := getSecret()
	if err != nil {
		return err
	}

	blob, err := crypto.Seal(plaintext, secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, blob)
	return nil
}

func cmdOpen(args []string) error {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var blob string
	if fs.NArg() > 0 {
		blob = fs.Arg(0)
	} else {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		blob = string(raw)
	}

	secret, err := getSecret()
	if err != nil {
		return err
	}

	plaintext, err := crypto.Open(strings.TrimSpace(blob), secret)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, plaintext)
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stdout)
	}
	return nil
}

func cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	server := fs.String("server", serverDefault(), "API address")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}

	password, err := readHiddenConfirmed("Account password: ", "Confirm password: ")
	if err != nil {
		return err
	}

	user, err := client.New(*server).Register(ctx, *email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Registered %s (%s)\n", user.Email, user.ID)
	return nil
}

func cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	server := fs.String("server", serverDefault(), "API address")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}

	password, err := readHidden("Account password: ")
	if err != nil {
		return err
	}

	session, err := client.New(*server).Login(ctx, *email, password)
	if err != nil {
		return err
	}

	path, err := defaultSessionPath()
	if err != nil {
		return err
	}
	if err := saveSession(path, storedSession{Server: *server, Session: *session}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Logged in as %s\n", session.Email)
	return nil
}

func cmdList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withClient(ctx, func(c *client.Client) error {
		items, err := c.List(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tUSERNAME\tPASSWORD\tNOTES")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Title, it.Username, it.Password, it.Notes)
		}
		return tw.Flush()
	})
}

func cmdAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	title := fs.String("title", "", "entry title")
	username := fs.String("username", "", "entry username")
	notes := fs.String("notes", "", "optional notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *title == "" || *username == "" {
		return errors.New("--title and --username are required")
	}

	password, err := readHiddenConfirmed("Entry password: ", "Confirm password: ")
	if err != nil {
		return err
	}

	return withClient(ctx, func(c *client.Client) error {
		item, err := c.Add(ctx, client.ItemInput{
			Title:    *title,
			Username: *username,
			Password: password,
			Notes:    *notes,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, item.ID)
		return nil
	})
}

func cmdRemove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: locker rm ID")
	}

	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid entry ID: %w", err)
	}

	return withClient(ctx, func(c *client.Client) error {
		return c.Delete(ctx, id)
	})
}

// withClient loads the stored session and retries once after a token refresh
// when the access token has expired.
func withClient(ctx context.Context, fn func(c *client.Client) error) error {
	path, err := defaultSessionPath()
	if err != nil {
		return err
	}
	stored, err := loadSession(path)
	if err != nil {
		return err
	}

	c := client.New(stored.Server, client.WithSession(&stored.Session))
	err = fn(c)

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	session, refreshErr := c.Refresh(ctx)
	if refreshErr != nil {
		return fmt.Errorf("session expired, run `locker login` again: %w", refreshErr)
	}
	stored.Session = *session
	if err := saveSession(path, *stored); err != nil {
		return err
	}
	return fn(c)
}

func serverDefault() string {
	if s := os.Getenv(ServerEnvVar); s != "" {
		return s
	}
	return defaultServer
}

// Command parentctl manages accounts and the domain catalog from the shell.
// It reads the same environment as the server.
//
//	parentctl create-parent --email ana@example.com --password '...'
//	parentctl create-child  --email ana@example.com --name Sam
//	parentctl list-children --email ana@example.com
//	parentctl reclassify    --domain example.com
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/auth"
	"github.com/tbourn/go-parental-backend/internal/classifier"
	"github.com/tbourn/go-parental-backend/internal/clock"
	"github.com/tbourn/go-parental-backend/internal/config"
	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/repo"
	"github.com/tbourn/go-parental-backend/internal/services"
	"github.com/tbourn/go-parental-backend/internal/sysutil"
)

const usage = `usage: parentctl <command> [flags]

commands:
  create-parent   register a parent account
  create-child    add a child profile to a parent
  list-children   list a parent's children
  reclassify      classify a domain again and overwrite its catalog entry
`

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}
	cmd, args := args[0], args[1:]

	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SetOutput(out)
	dbPath := fs.String("db-path", "", "SQLite file (overrides DB_PATH)")
	email := fs.String("email", "", "parent email")
	password := fs.String("password", "", "parent password")
	name := fs.String("name", "", "child name")
	host := fs.String("domain", "", "domain to reclassify")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.DBPath = sysutil.FirstNonEmpty(*dbPath, cfg.DBPath)
	sysutil.ConfigureLogger(os.Stderr, sysutil.FirstNonEmpty(os.Getenv("LOG_LEVEL"), "warn"), true)

	db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	switch cmd {
	case "create-parent":
		return createParent(ctx, db, out, *email, *password)
	case "create-child":
		return createChild(ctx, db, out, *email, *name)
	case "list-children":
		return listChildren(ctx, db, out, *email)
	case "reclassify":
		return reclassify(ctx, db, cfg, out, *host)
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func createParent(ctx context.Context, db *gorm.DB, out io.Writer, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("--email is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	p, err := repo.CreateParent(ctx, db, email, hash)
	if errors.Is(err, repo.ErrDuplicate) {
		return fmt.Errorf("parent %s already exists", email)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, p.ID)
	return nil
}

func createChild(ctx context.Context, db *gorm.DB, out io.Writer, email, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("--name is required")
	}
	p, err := parentByEmail(ctx, db, email)
	if err != nil {
		return err
	}
	c, err := repo.CreateChild(ctx, db, p.ID, name)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, c.ID)
	return nil
}

func listChildren(ctx context.Context, db *gorm.DB, out io.Writer, email string) error {
	p, err := parentByEmail(ctx, db, email)
	if err != nil {
		return err
	}
	kids, err := repo.ListChildren(ctx, db, p.ID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, k := range kids {
		fmt.Fprintf(tw, "%s\t%s\n", k.ID, k.Name)
	}
	return tw.Flush()
}

func reclassify(ctx context.Context, db *gorm.DB, cfg config.Config, out io.Writer, host string) error {
	if strings.TrimSpace(host) == "" {
		return errors.New("--domain is required")
	}
	cl, err := classifier.FromConfig(cfg.Classifier)
	if err != nil {
		return err
	}
	catalog := services.NewCatalogService(db, cl, clock.Real(cfg.Location), cfg.Classifier.Timeout)
	e, err := catalog.Reclassify(ctx, host)
	if err != nil {
		return err
	}
	cat := sysutil.FirstNonEmpty(e.Category.Name, e.CategoryID)
	fmt.Fprintf(out, "%s\t%s\t%d\n", e.Domain, cat, e.SafetyScore)
	return nil
}

func parentByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Parent, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.New("--email is required")
	}
	p, err := repo.GetParentByEmail(ctx, db, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("no parent with email %s", email)
	}
	return p, err
}

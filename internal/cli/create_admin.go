package cli

import (
	"flag"
	"fmt"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/entities"
)

// CreateAdminCommand bootstraps a librarian account from the terminal.
// The web registration form only ever creates patrons, so the first
// librarian has to come from here.
type CreateAdminCommand struct {
	flags    *flag.FlagSet
	username string
	login    string
	email    string
	password string
	dbPath   string
}

func NewCreateAdminCommand() *CreateAdminCommand {
	cmd := &CreateAdminCommand{
		flags: flag.NewFlagSet("create-admin", flag.ContinueOnError),
	}
	cmd.flags.StringVar(&cmd.username, "username", "", "Display name (2-20 latin letters)")
	cmd.flags.StringVar(&cmd.login, "login", "", "Login (3-20 letters, digits or underscores)")
	cmd.flags.StringVar(&cmd.email, "email", "", "Email address")
	cmd.flags.StringVar(&cmd.password, "password", "", "Password (8+ chars, letters, digits and symbols)")
	cmd.flags.StringVar(&cmd.dbPath, "db", "", "Database path (defaults to config)")
	return cmd
}

func (c *CreateAdminCommand) ParseFlags(args []string) error {
	if err := c.flags.Parse(args); err != nil {
		return err
	}
	if c.username == "" || c.login == "" || c.email == "" || c.password == "" {
		return fmt.Errorf("username, login, email and password are all required")
	}
	return nil
}

func (c *CreateAdminCommand) Run() error {
	cfg := config.NewConfig()
	dbPath := c.dbPath
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}

	db, err := database.NewDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	service := auth.NewService(db.DB, cfg.Auth)
	user, err := service.Register(auth.RegisterParams{
		Username:        c.username,
		Login:           c.login,
		Email:           c.email,
		Password:        c.password,
		ConfirmPassword: c.password,
		Role:            entities.UserRoleLibrarian,
	})
	if err != nil {
		return fmt.Errorf("create librarian: %w", err)
	}

	fmt.Printf("Created librarian account %q (id=%d)\n", user.Login, user.ID)
	return nil
}

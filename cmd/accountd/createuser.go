package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-extras/cobraflags"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	account "github.com/goliatone/go-account"
)

const (
	emailFlag     = "email"
	firstNameFlag = "first-name"
	lastNameFlag  = "last-name"
	passwordFlag  = "password"
)

var createUserFlags = map[string]cobraflags.Flag{
	emailFlag: &cobraflags.StringFlag{
		Name:  emailFlag,
		Usage: "Email address, also the login",
	},
	firstNameFlag: &cobraflags.StringFlag{
		Name:  firstNameFlag,
		Usage: "First name",
	},
	lastNameFlag: &cobraflags.StringFlag{
		Name:  lastNameFlag,
		Usage: "Last name",
	},
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Usage: "Password, prompted for when empty",
	},
}

type createUserOptions struct {
	staff     bool
	superuser bool
	confirmed bool
}

func newCreateUserCommand(a *app) *cobra.Command {
	opts := &createUserOptions{}

	cmd := &cobra.Command{
		Use:   "createuser",
		Short: "Create a user, optionally with staff or superuser status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.createUser(cmd.Context(), opts)
		},
	}

	cobraflags.RegisterMap(cmd, createUserFlags)
	cmd.Flags().BoolVar(&opts.staff, "staff", false, "Allow access to the admin pages")
	cmd.Flags().BoolVar(&opts.superuser, "superuser", false, "Grant every permission")
	cmd.Flags().BoolVar(&opts.confirmed, "confirmed", true, "Mark the email address as confirmed")

	return cmd
}

func (a *app) createUser(ctx context.Context, opts *createUserOptions) error {
	form := &account.AddUserForm{
		Email:        createUserFlags[emailFlag].GetString(),
		FirstName:    createUserFlags[firstNameFlag].GetString(),
		LastName:     createUserFlags[lastNameFlag].GetString(),
		Password1:    createUserFlags[passwordFlag].GetString(),
		IsStaff:      opts.staff,
		IsSuperuser:  opts.superuser,
		EmailConfirm: opts.confirmed,
	}

	if form.Password1 == "" {
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		form.Password1, form.Password2 = pwd[0], pwd[1]
	} else {
		form.Password2 = form.Password1
	}

	db, err := openDB(a.cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := account.Migrate(ctx, db, a.logger); err != nil {
		return err
	}

	repo := account.NewRepositoryManager(db)
	printer := account.NewTranslator(a.cfg.GetDefaultLocale()).PrinterFor("en")

	if err := form.Validate(ctx, repo.Users(), printer); err != nil {
		if account.IsValidationError(err) {
			return formError(form.Errors)
		}
		return err
	}

	msg := form.RegisterMessage()
	msg.OnResponse = func(user *account.User) {
		fmt.Printf("created %s (%s)\n", user, user.ID)
	}

	return account.NewRegisterUserHandler(repo, nil, a.logger).Execute(ctx, msg)
}

func promptPassword() ([2]string, error) {
	var out [2]string

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return out, goerrors.New("password required", goerrors.CategoryValidation)
		}
		pwd := strings.TrimRight(line, "\r\n")
		return [2]string{pwd, pwd}, nil
	}

	for i, label := range []string{"Password: ", "Password (again): "} {
		fmt.Print(label)
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return out, err
		}
		out[i] = string(b)
	}
	return out, nil
}

func formError(errs account.FormErrors) error {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("%s: %s", f, errs[f]))
	}
	return goerrors.New(strings.Join(lines, "\n"), goerrors.CategoryValidation)
}

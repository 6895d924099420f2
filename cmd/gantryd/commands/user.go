package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gantrykit/gantry/internal/cli/output"
	"github.com/gantrykit/gantry/internal/cli/prompt"
	"github.com/gantrykit/gantry/internal/cli/timeutil"
	"github.com/gantrykit/gantry/pkg/config"
	"github.com/gantrykit/gantry/pkg/identity"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users in the identity store",
	Long: `Manage the users the server authenticates against.

These commands operate directly on the identity store named in the
configuration file, so they work whether or not the server is running.

Examples:
  # List all users
  gantryd user list

  # Add a user (prompts for a password)
  gantryd user add alice

  # Add an administrator
  gantryd user add ops --role admin

  # Change a password
  gantryd user passwd alice

  # Delete a user without confirmation
  gantryd user delete alice --force`,
}

var (
	userAddRole     string
	userAddPassword string
	userAddDisabled bool
	userListOutput  string
	userDeleteForce bool
	userPasswdValue string
)

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user",
	Long: `Add a new user to the identity store.

If no password is provided via --password, you will be prompted to
enter one interactively.

Examples:
  # Add a user interactively
  gantryd user add alice

  # Add an admin with a password from a flag
  gantryd user add ops --role admin --password 'long-enough-secret'`,
	Args: cobra.ExactArgs(1),
	RunE: runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Long: `List all users in the identity store.

Examples:
  # List users as a table
  gantryd user list

  # List as JSON
  gantryd user list -o json`,
	RunE: runUserList,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a user",
	Long: `Delete a user from the identity store.

This action is irreversible. You will be prompted for confirmation
unless --force is specified.

Examples:
  # Delete a user with confirmation
  gantryd user delete alice

  # Delete without confirmation
  gantryd user delete alice --force`,
	Args: cobra.ExactArgs(1),
	RunE: runUserDelete,
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Change a user's password",
	Long: `Change the password of an existing user.

If no password is provided via --password, you will be prompted to
enter one interactively.

Examples:
  # Change a password interactively
  gantryd user passwd alice`,
	Args: cobra.ExactArgs(1),
	RunE: runUserPasswd,
}

func init() {
	userAddCmd.Flags().StringVar(&userAddRole, "role", "user", "Role (user|admin)")
	userAddCmd.Flags().StringVarP(&userAddPassword, "password", "p", "", "Password (prompts if not provided)")
	userAddCmd.Flags().BoolVar(&userAddDisabled, "disabled", false, "Create the account disabled")

	userListCmd.Flags().StringVarP(&userListOutput, "output", "o", "table", "Output format (table, json, yaml)")

	userDeleteCmd.Flags().BoolVarP(&userDeleteForce, "force", "f", false, "Skip confirmation prompt")

	userPasswdCmd.Flags().StringVarP(&userPasswdValue, "password", "p", "", "New password (prompts if not provided)")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userPasswdCmd)
}

// openIdentityStore loads the configuration and opens the identity store
// it names. The caller owns the store and must Close it.
func openIdentityStore() (*identity.Store, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	store, err := identity.New(&cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to open identity store: %w", err)
	}
	return store, nil
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	role := identity.UserRole(userAddRole)
	if !role.IsValid() {
		return fmt.Errorf("invalid role %q (valid: user, admin)", userAddRole)
	}

	password := userAddPassword
	if password == "" {
		var err error
		password, err = prompt.PasswordWithConfirmation("Password", "Confirm password", identity.MinPasswordLength)
		if err != nil {
			return handleAbort(err)
		}
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}

	store, err := openIdentityStore()
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.CreateUser(cmd.Context(), &identity.User{
		Username:     username,
		PasswordHash: hash,
		Role:         string(role),
		Disabled:     userAddDisabled,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User '%s' created\n", username)
	return nil
}

// userList renders users as a table.
type userList []*identity.User

func (ul userList) Headers() []string {
	return []string{"USERNAME", "ROLE", "STATUS", "CREATED", "LAST LOGIN"}
}

func (ul userList) Rows() [][]string {
	rows := make([][]string, 0, len(ul))
	for _, u := range ul {
		status := "active"
		if u.Disabled {
			status = "disabled"
		}
		lastLogin := "-"
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.Local().Format(timeutil.LocalTimeFormat)
		}
		created := u.CreatedAt.Local().Format(timeutil.LocalTimeFormat)
		rows = append(rows, []string{u.Username, u.Role, status, created, lastLogin})
	}
	return rows
}

func runUserList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(userListOutput)
	if err != nil {
		return err
	}

	store, err := openIdentityStore()
	if err != nil {
		return err
	}
	defer store.Close()

	users, err := store.ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	w := cmd.OutOrStdout()
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, users)
	case output.FormatYAML:
		return output.PrintYAML(w, users)
	default:
		if len(users) == 0 {
			fmt.Fprintln(w, "No users found.")
			return nil
		}
		return output.PrintTable(w, userList(users))
	}
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	username := args[0]

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete user '%s'?", username), userDeleteForce)
	if err != nil {
		return handleAbort(err)
	}
	if !confirmed {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}

	store, err := openIdentityStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteUser(cmd.Context(), username); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User '%s' deleted\n", username)
	return nil
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	username := args[0]

	password := userPasswdValue
	if password == "" {
		var err error
		password, err = prompt.PasswordWithConfirmation("New password", "Confirm new password", identity.MinPasswordLength)
		if err != nil {
			return handleAbort(err)
		}
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}

	store, err := openIdentityStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.UpdatePassword(cmd.Context(), username, hash); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Password for '%s' updated\n", username)
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"qrganizer/internal/app"
	"qrganizer/internal/config"
	"qrganizer/internal/encryption"
	"qrganizer/internal/model"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withConfirmHint tells the user how to go ahead with an approximate match.
func withConfirmHint(err error) error {
	if errors.Is(err, app.ErrUnconfirmedMatch) {
		return fmt.Errorf("%w (use #id or --yes to delete it)", err)
	}
	return err
}

// loadConfig reads the config file at the default location.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults.ConfigPath, nil
}

// newApp reads the config and creates a QRApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "SpaceAdd", "Serve").
func newApp(ctx context.Context, operation string) (*app.QRApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewQRApp(ctx, cfg, operation, app.Options{Console: os.Stderr, Notices: os.Stderr})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "qrg",
	Short:         "Household inventory of spaces and items",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)

		if cfg.Encryption.Type != "age" {
			return nil
		}
		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}
		if err := encryption.NewAgeSealer(cfg.Encryption).GenerateKeys(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Keys written to %s\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Database:     %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Interpreter:  %s %s (timeout %s)\n", cfg.Interpreter.Type, cfg.Interpreter.Model, cfg.Interpreter.Timeout)
		fmt.Printf("Threshold:    %v\n", cfg.Resolver.FuzzyThreshold)
		fmt.Printf("Server:       %s\n", cfg.Server.Addr)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:        %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

// space command
var spaceCmd = &cobra.Command{
	Use:   "space",
	Short: "Manage spaces",
}

var spaceAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a space",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("in")

		a, err := newApp(cmd.Context(), "SpaceAdd")
		if err != nil {
			return err
		}
		defer a.Close()

		sp, err := a.AddSpace(cmd.Context(), args[0], parent)
		if err != nil {
			return err
		}
		fmt.Printf("Created space #%d %s\n", sp.ID, sp.Name)
		return nil
	},
}

var spaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List spaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SpaceList")
		if err != nil {
			return err
		}
		defer a.Close()

		spaces, err := a.DB().ListSpaces(cmd.Context())
		if err != nil {
			return err
		}
		if len(spaces) == 0 {
			fmt.Println("No spaces.")
			return nil
		}
		for _, sp := range spaces {
			parent := "-"
			if sp.ParentID != nil {
				parent = fmt.Sprintf("#%d", *sp.ParentID)
			}
			fmt.Printf("#%-5d %-30s parent:%-6s depth:%d\n", sp.ID, sp.Name, parent, sp.Depth)
		}
		return nil
	},
}

var spaceTreeCmd = &cobra.Command{
	Use:   "tree [SPACE]",
	Short: "Show the space tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SpaceTree")
		if err != nil {
			return err
		}
		defer a.Close()

		ref := ""
		if len(args) > 0 {
			ref = args[0]
		}
		tree, err := a.Tree(cmd.Context(), ref)
		if err != nil {
			return err
		}
		if len(tree) == 0 {
			fmt.Println("No spaces.")
			return nil
		}
		for _, n := range tree {
			printNode(n, 0)
		}
		return nil
	},
}

var spaceChildrenCmd = &cobra.Command{
	Use:   "children SPACE",
	Short: "List the direct children of a space",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SpaceChildren")
		if err != nil {
			return err
		}
		defer a.Close()

		children, err := a.Children(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(children) == 0 {
			fmt.Println("No child spaces.")
			return nil
		}
		for _, c := range children {
			fmt.Printf("#%-5d %s (%d items)\n", c.ID, c.Name, len(c.Items))
		}
		return nil
	},
}

var spaceRenameCmd = &cobra.Command{
	Use:   "rename SPACE NAME",
	Short: "Rename a space",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SpaceRename")
		if err != nil {
			return err
		}
		defer a.Close()

		sp, err := a.RenameSpace(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Renamed space #%d to %s\n", sp.ID, sp.Name)
		return nil
	},
}

var spaceMoveCmd = &cobra.Command{
	Use:   "move SPACE [PARENT]",
	Short: "Move a space under another, or to the top level",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SpaceMove")
		if err != nil {
			return err
		}
		defer a.Close()

		parent := ""
		if len(args) > 1 {
			parent = args[1]
		}
		sp, err := a.MoveSpace(cmd.Context(), args[0], parent)
		if err != nil {
			return err
		}
		if sp.ParentID == nil {
			fmt.Printf("Moved space %s to the top level\n", sp.Name)
		} else {
			fmt.Printf("Moved space %s under #%d\n", sp.Name, *sp.ParentID)
		}
		return nil
	},
}

var spaceRmCmd = &cobra.Command{
	Use:   "rm SPACE",
	Short: "Delete a space with everything inside it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SpaceRemove")
		if err != nil {
			return err
		}
		defer a.Close()

		yes, _ := cmd.Flags().GetBool("yes")
		sp, res, err := a.RemoveSpace(cmd.Context(), args[0], yes)
		if err != nil {
			return withConfirmHint(err)
		}
		fmt.Printf("Deleted space %s (%d space(s), %d item(s))\n", sp.Name, res.Spaces, res.Items)
		return nil
	},
}

// item command
var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage items",
}

var itemAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		space, _ := cmd.Flags().GetString("in")
		desc := optionalFlag(cmd, "description")

		a, err := newApp(cmd.Context(), "ItemAdd")
		if err != nil {
			return err
		}
		defer a.Close()

		it, err := a.AddItem(cmd.Context(), args[0], desc, space)
		if err != nil {
			return err
		}
		fmt.Printf("Created item #%d %s\n", it.ID, it.Name)
		return nil
	},
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items",
	RunE: func(cmd *cobra.Command, args []string) error {
		space, _ := cmd.Flags().GetString("in")

		a, err := newApp(cmd.Context(), "ItemList")
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.ListItems(cmd.Context(), space)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No items.")
			return nil
		}
		for _, it := range items {
			printItem(it)
		}
		return nil
	},
}

var itemRenameCmd = &cobra.Command{
	Use:   "rename ITEM NAME",
	Short: "Rename an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc := optionalFlag(cmd, "description")

		a, err := newApp(cmd.Context(), "ItemRename")
		if err != nil {
			return err
		}
		defer a.Close()

		it, err := a.UpdateItem(cmd.Context(), args[0], args[1], desc)
		if err != nil {
			return err
		}
		fmt.Printf("Renamed item #%d to %s\n", it.ID, it.Name)
		return nil
	},
}

var itemMoveCmd = &cobra.Command{
	Use:   "move ITEM [SPACE]",
	Short: "Put an item into a space, or take it out",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ItemMove")
		if err != nil {
			return err
		}
		defer a.Close()

		space := ""
		if len(args) > 1 {
			space = args[1]
		}
		it, err := a.MoveItem(cmd.Context(), args[0], space)
		if err != nil {
			return err
		}
		if it.SpaceID == nil {
			fmt.Printf("Item %s is no longer in any space\n", it.Name)
		} else {
			fmt.Printf("Moved item %s to #%d\n", it.Name, *it.SpaceID)
		}
		return nil
	},
}

var itemRmCmd = &cobra.Command{
	Use:   "rm ITEM",
	Short: "Delete an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ItemRemove")
		if err != nil {
			return err
		}
		defer a.Close()

		yes, _ := cmd.Flags().GetBool("yes")
		it, err := a.RemoveItem(cmd.Context(), args[0], yes)
		if err != nil {
			return withConfirmHint(err)
		}
		fmt.Printf("Deleted item %s\n", it.Name)
		return nil
	},
}

// find command
var findCmd = &cobra.Command{
	Use:   "find QUERY",
	Short: "Search spaces and items",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "Find")
		if err != nil {
			return err
		}
		defer a.Close()

		hits, err := a.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("Nothing found.")
			return nil
		}
		for _, h := range hits {
			where := strings.Join(h.Path, " > ")
			if where == "" {
				where = "-"
			}
			fmt.Printf("%-5s #%-5d %-30s %s\n", h.Kind, h.ID, h.Name, where)
		}
		return nil
	},
}

// say command
var sayCmd = &cobra.Command{
	Use:   "say TEXT",
	Short: "Run a free-text command",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Say")
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Say(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(out.Message)
		return nil
	},
}

// shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run free-text commands interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Shell")
		if err != nil {
			return err
		}
		defer a.Close()

		return runShell(cmd.Context(), a, os.Stdin, os.Stdout)
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View free-text command history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "History")
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No commands recorded.")
			return nil
		}
		for _, r := range recs {
			fmt.Printf("#%d  %s  %-9s  %-22s  %q -> %s\n",
				r.ID,
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				r.Action,
				r.Text,
				r.Outcome,
			)
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(ctx, func(addr string) {
			fmt.Printf("Listening on http://%s\n", addr)
		})
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload an encrypted database snapshot to every vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Backup")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Backup(cmd.Context())
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Printf("Backed up revision %d (%d bytes) to %s\n", res.Version, res.Bytes, strings.Join(res.Vaults, ", "))
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local database with the newest vault snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase := ""
		if cfg.Encryption.Type == "age" {
			if passphrase, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}

		res, err := app.Restore(cmd.Context(), cfg, passphrase, force, os.Stderr)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("Restored revision %d from %s into %s\n", res.Version, res.Vault, res.Path)
		return nil
	},
}

func printNode(n *model.SpaceNode, level int) {
	indent := strings.Repeat("  ", level)
	fmt.Printf("%s%s (#%d)\n", indent, n.Name, n.ID)
	for _, it := range n.Items {
		fmt.Printf("%s  - %s (#%d)\n", indent, it.Name, it.ID)
	}
	for _, c := range n.Children {
		printNode(c, level+1)
	}
}

func printItem(it *model.Item) {
	space := "-"
	if it.SpaceID != nil {
		space = fmt.Sprintf("#%d", *it.SpaceID)
	}
	desc := ""
	if it.Description != nil {
		desc = *it.Description
	}
	fmt.Printf("#%-5d %-30s space:%-6s %s\n", it.ID, it.Name, space, desc)
}

// optionalFlag returns the flag value, or nil when it was not given.
func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// space subcommands
	spaceCmd.AddCommand(spaceAddCmd)
	spaceAddCmd.Flags().StringP("in", "p", "", "Parent space (name or #id)")
	spaceCmd.AddCommand(spaceListCmd)
	spaceCmd.AddCommand(spaceTreeCmd)
	spaceCmd.AddCommand(spaceChildrenCmd)
	spaceCmd.AddCommand(spaceRenameCmd)
	spaceCmd.AddCommand(spaceMoveCmd)
	spaceCmd.AddCommand(spaceRmCmd)

	// item subcommands
	itemCmd.AddCommand(itemAddCmd)
	itemAddCmd.Flags().StringP("in", "s", "", "Space to put the item in (name or #id)")
	itemAddCmd.Flags().StringP("description", "d", "", "Item description")
	itemCmd.AddCommand(itemListCmd)
	itemListCmd.Flags().StringP("in", "s", "", "Only list items in this space")
	itemCmd.AddCommand(itemRenameCmd)
	itemRenameCmd.Flags().StringP("description", "d", "", "Replace the description")
	itemCmd.AddCommand(itemMoveCmd)
	itemCmd.AddCommand(itemRmCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(spaceCmd)
	rootCmd.AddCommand(itemCmd)
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().IntP("limit", "n", 20, "Maximum number of results")
	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of commands to show")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().Bool("force", false, "Overwrite local changes newer than the snapshot")
	spaceRmCmd.Flags().BoolP("yes", "y", false, "Delete even when the name only matched approximately")
	itemRmCmd.Flags().BoolP("yes", "y", false, "Delete even when the name only matched approximately")
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List tracked projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectsList,
}

var projectsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Change a project's display name",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectsRename,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project, its snapshot and its activity history",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

func init() {
	projectsCmd.AddCommand(projectsRenameCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	_, store, _, err := openTracker()
	if err != nil {
		fail(err)
	}

	projects, err := store.Projects()
	if err != nil {
		fail(err)
	}
	if len(projects) == 0 {
		fmt.Println("No tracked projects yet. Run 'ptt start <task>' in a project directory.")
		return nil
	}

	for _, p := range projects {
		lastUsed := "never"
		if p.LastUsed != 0 {
			lastUsed = time.UnixMilli(p.LastUsed).Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  %-24s %s  (last used %s)\n", p.ID, p.Name, p.Path, lastUsed)
	}
	return nil
}

func runProjectsRename(cmd *cobra.Command, args []string) error {
	_, store, _, err := openTracker()
	if err != nil {
		fail(err)
	}
	if err := store.RenameProject(args[0], args[1]); err != nil {
		fail(err)
	}
	fmt.Printf("Renamed project %s to %q\n", args[0], args[1])
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	_, store, _, err := openTracker()
	if err != nil {
		fail(err)
	}
	if err := store.DeleteProject(args[0]); err != nil {
		fail(err)
	}
	fmt.Printf("Deleted project %s, its snapshot and its activity history\n", args[0])
	return nil
}

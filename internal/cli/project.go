package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectRepoURL string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectNew,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project]",
	Short: "Show one project's details",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete [project]",
	Short: "Delete a project and all its history",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

func init() {
	projectNewCmd.Flags().StringVar(&projectRepoURL, "repo", "", "external repository URL")
	projectCmd.AddCommand(projectNewCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.CreateProject(args[0], projectRepoURL)
	if err != nil {
		return err
	}
	fmt.Printf("Created project %s%s%s (%s)\n", colorBold, p.Name, colorReset, p.ID)
	fmt.Printf("Start talking: %sforeman chat %s \"your idea\"%s\n", colorCyan, p.Name, colorReset)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	projects, err := s.ListProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Printf("No projects. Run: %sforeman project new \"name\"%s\n", colorCyan, colorReset)
		return nil
	}

	for _, p := range projects {
		fmt.Printf("  %s%-24s%s %s%-14s%s %s%s%s\n",
			colorBold, p.Name, colorReset,
			statusColor(p.Status), p.Status, colorReset,
			colorDim, p.ID, colorReset)
	}
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := findProject(s, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s%s%s\n", colorBold, p.Name, colorReset)
	fmt.Printf("  id:      %s\n", p.ID)
	fmt.Printf("  status:  %s%s%s\n", statusColor(p.Status), p.Status, colorReset)
	if p.RepoURL != "" {
		fmt.Printf("  repo:    %s\n", p.RepoURL)
	}
	fmt.Printf("  created: %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))

	topics, err := s.ListTopics(p.ID)
	if err != nil {
		return err
	}
	if len(topics) > 0 {
		fmt.Printf("\nTopics:\n")
		for _, t := range topics {
			marker := " "
			if t.Active {
				marker = "*"
			}
			fmt.Printf("  %s %s%s%s\n", marker, colorDim, t.Title, colorReset)
		}
	}
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := findProject(s, args[0])
	if err != nil {
		return err
	}
	if err := s.DeleteProject(p.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted project %s%s%s and all its history\n", colorBold, p.Name, colorReset)
	return nil
}

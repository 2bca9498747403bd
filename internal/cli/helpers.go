package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"foreman/internal/agent"
	"foreman/internal/config"
	"foreman/internal/store"
	"foreman/internal/workflow"
)

const foremanDirName = ".foreman"

// ANSI color codes.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

// foremanPath returns the path to a file inside .foreman/.
func foremanPath(parts ...string) string {
	elems := append([]string{foremanDirName}, parts...)
	return filepath.Join(elems...)
}

// mustStore opens the store, returning an error if foreman is not initialized.
func mustStore() (*store.Store, error) {
	dbPath := foremanPath("foreman.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("foreman not initialized. Run: foreman init")
	}
	return store.New(dbPath)
}

// mustConfig loads the workspace config.
func mustConfig() (*config.Config, error) {
	cfgPath := foremanPath("config.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("foreman not initialized. Run: foreman init")
	}
	return config.Load(cfgPath)
}

// mustSetup opens the store, config and a fully wired orchestrator.
func mustSetup() (*store.Store, *workflow.Orchestrator, error) {
	s, err := mustStore()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := mustConfig()
	if err != nil {
		s.Close()
		return nil, nil, err
	}

	runner := agent.NewCLIRunner("coder", cfg.Agent)
	deciderCfg := cfg.Decider
	if deciderCfg.Cmd == "" {
		deciderCfg = cfg.Agent
	}
	decider := agent.NewCLIDecider(deciderCfg)

	workDir, _ := os.Getwd()
	o := workflow.New(s, runner, decider, cfg, workDir, logger, printUpdate)
	return s, o, nil
}

// printUpdate renders asynchronous workflow updates (command completions,
// gates opened by them) as they arrive.
func printUpdate(u workflow.Update) {
	if u.Text != "" {
		fmt.Printf("%s»%s %s\n", colorCyan, colorReset, u.Text)
	}
	if u.Gate != nil && u.Gate.Status == store.GatePending {
		fmt.Printf("%s⏸  Approval needed%s (%s): foreman approve %s\n",
			colorYellow+colorBold, colorReset, u.Gate.Type, u.Gate.ID)
	}
}

// findProject resolves a project by ID or unique name prefix.
func findProject(s *store.Store, ref string) (*store.Project, error) {
	if p, err := s.GetProject(ref); err == nil {
		return p, nil
	}
	projects, err := s.ListProjects()
	if err != nil {
		return nil, err
	}
	var match *store.Project
	for i := range projects {
		p := &projects[i]
		if p.Name == ref || len(ref) >= 8 && len(p.ID) >= len(ref) && p.ID[:len(ref)] == ref {
			if match != nil {
				return nil, fmt.Errorf("%q matches more than one project", ref)
			}
			match = p
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no project %q. Run: foreman project list", ref)
	}
	return match, nil
}

func statusColor(status store.ProjectStatus) string {
	switch status {
	case store.ProjectCompleted:
		return colorGreen
	case store.ProjectPaused:
		return colorRed
	case store.ProjectInProgress:
		return colorBlue
	case store.ProjectVisionReview, store.ProjectPlanning:
		return colorYellow
	}
	return colorDim
}

func phaseColor(status store.PhaseStatus) string {
	switch status {
	case store.PhaseCompleted:
		return colorGreen
	case store.PhaseActive:
		return colorBlue
	case store.PhaseFailed:
		return colorRed
	}
	return colorDim
}

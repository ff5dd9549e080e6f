package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"catmigrate/pkg/checkpoint"
	"catmigrate/pkg/config"
)

// checkpointCmd represents the checkpoint command
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or clear migration progress",
	Long: `Inspect or clear the migration checkpoint.

The checkpoint records the last fully processed page and, mid-page, the
last successfully updated item. Clearing it makes the next run start
from the configured start page.`,
}

// checkpointShowCmd represents the checkpoint show command
var checkpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current checkpoint",
	RunE:  runCheckpointShow,
}

// checkpointClearCmd represents the checkpoint clear command
var checkpointClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the checkpoint file",
	RunE:  runCheckpointClear,
}

var checkpointYes bool

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointClearCmd)

	checkpointClearCmd.Flags().BoolVarP(&checkpointYes, "yes", "y", false, "Skip confirmation prompt")
}

func checkpointManager() (*checkpoint.Manager, error) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return checkpoint.NewManager(cfg.Batch.CheckpointFile, cfg.Batch.StartPage)
}

func runCheckpointShow(cmd *cobra.Command, args []string) error {
	manager, err := checkpointManager()
	if err != nil {
		return err
	}

	cp, found := manager.Load()
	if !found {
		fmt.Println("No checkpoint found.")
		fmt.Printf("File: %s\n", manager.Path())
		return nil
	}

	fmt.Printf("File: %s\n", manager.Path())
	fmt.Printf("Last completed page: %d\n", cp.LastPage)
	if cp.LastItemID != nil {
		fmt.Printf("Last updated item: %d (page %d was interrupted mid-way)\n", *cp.LastItemID, cp.LastPage)
	} else {
		fmt.Println("Last updated item: none (page completed)")
	}

	page, itemID := manager.ResumePoint()
	if itemID != nil {
		fmt.Printf("Next run resumes: page %d, after item %d\n", page, *itemID)
	} else {
		fmt.Printf("Next run resumes: page %d\n", page)
	}
	return nil
}

func runCheckpointClear(cmd *cobra.Command, args []string) error {
	manager, err := checkpointManager()
	if err != nil {
		return err
	}

	if !manager.Exists() {
		fmt.Println("No checkpoint to clear.")
		return nil
	}

	if !checkpointYes {
		fmt.Printf("Delete checkpoint %s? The next run will start over. (y/N): ", manager.Path())
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	if err := manager.Delete(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	fmt.Println("Checkpoint cleared.")
	return nil
}

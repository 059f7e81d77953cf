package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "classroll",
	Short: "Automated classroom attendance from camera frames",
	Long: `Classroll watches classroom cameras, recognizes enrolled students and
records their attendance against the weekly timetable. Students who arrive
within the grace period are marked Present; everyone still unmarked when the
grace period ends is marked Absent.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

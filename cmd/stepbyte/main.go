package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "stepbyte [command] (flags)",
	Short: "step-by-step Python execution tracer",
	Long: `stepbyte runs a Python program line by line and records each step:
the line, the function, the local variables, the call stack and any exception.`,
	SilenceUsage: true,
}

func main() {
	log.SetFlags(0)

	// A missing .env file is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("ignoring .env: %v", err)
	}

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		serveCmd,
		runCmd,
		complexityCmd,
	)

	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")

	runCmd.Flags().StringVar(
		&runStdin, "stdin", "", "text supplied to the program on standard input")
	runCmd.Flags().StringVar(
		&runStdinFile, "stdin-file", "", "file supplied to the program on standard input")
	runCmd.Flags().StringVarP(
		&runFormat, "format", "f", "table", "output format: table or json")
	runCmd.Flags().BoolVar(
		&runRaw, "raw", false, "print the unfiltered raw states as JSON")

	complexityCmd.Flags().StringVarP(
		&complexityFormat, "format", "f", "table", "output format: table or json")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

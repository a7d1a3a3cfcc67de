// Command minijvm runs and inspects classic JVM class files.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hsato/minijvm/pkg/classfile"
	"github.com/hsato/minijvm/pkg/vm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "minijvm",
		Short: "A classic-JVM class-file interpreter",
	}
	root.AddCommand(newRunCmd(), newDumpCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var classpath string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "run <class-name> [args...]",
		Short: "Load and execute a class's public static void main(String[])",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			className := strings.TrimSuffix(args[0], ".class")
			programArgs := args[1:]

			log := newLogger()
			cp := vm.NewClassPath(classpath)

			if askYesNo("enable class-file dump?") {
				if data, err := cp.ReadClass(className); err == nil {
					if cf, err := classfile.Parse(strings.NewReader(string(data))); err == nil {
						classfile.NewPrinter(os.Stdout).Dump(cf, className)
					}
				}
			}

			machine := vm.NewVM(cp, os.Stdout, log)

			if interactive || askYesNo("enable debug stepping?") {
				line := liner.NewLiner()
				defer line.Close()
				machine.Debugger = vm.NewDebugger(os.Stdout, line)
			}

			if err := machine.Execute(className, programArgs); err != nil {
				if fatal, ok := err.(*vm.FatalError); ok {
					vm.ReportFatal(os.Stderr, log, fatal)
					return fatal
				}
				reportPlainError(os.Stderr, log, err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&classpath, "cp", ".", "classpath: colon-separated directories and .jar/.zip archives")
	cmd.Flags().BoolVar(&interactive, "debug", false, "start in step-debug mode without prompting")
	return cmd
}

func newDumpCmd() *cobra.Command {
	var classpath string

	cmd := &cobra.Command{
		Use:   "dump <class-name>",
		Short: "Pretty-print a class file's constant pool, fields, methods, and bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			className := strings.TrimSuffix(args[0], ".class")
			cp := vm.NewClassPath(classpath)
			data, err := cp.ReadClass(className)
			if err != nil {
				return fmt.Errorf("reading class %s: %w", className, err)
			}
			cf, err := classfile.Parse(strings.NewReader(string(data)))
			if err != nil {
				return fmt.Errorf("parsing class %s: %w", className, err)
			}
			classfile.NewPrinter(os.Stdout).Dump(cf, className)
			return nil
		},
	}
	cmd.Flags().StringVar(&classpath, "cp", ".", "classpath: colon-separated directories and .jar/.zip archives")
	return cmd
}

func reportPlainError(w *os.File, log *logrus.Logger, err error) {
	fmt.Fprintf(w, "!!!! ERROR\n%v\n", err)
	log.WithError(err).Error("execution failed")
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	return log
}

// askYesNo reads a single yes/no answer from stdin via liner, matching the
// two startup prompts spec.md §6 names ("enable class-file dump", "enable
// debug stepping").
func askYesNo(prompt string) bool {
	line := liner.NewLiner()
	defer line.Close()
	answer, err := line.Prompt(prompt + " [y/N] ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

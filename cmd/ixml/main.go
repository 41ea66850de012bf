// Command ixml compiles an Invisible XML grammar and parses input with the
// resulting parser, writing the XML document to standard output.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bigale/ixml/pkgs/engine"
	ixerrors "github.com/bigale/ixml/pkgs/errors"
	"github.com/bigale/ixml/pkgs/ixml"
)

const (
	ExitSuccess      = 0
	ExitUsageError   = 1
	ExitIOError      = 2
	ExitGrammarError = 3
	ExitParseError   = 4
)

func main() {
	var (
		indent      bool
		failOnError bool
		timing      bool
		verbose     bool
		budget      uint64
	)

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	rootCmd := &cobra.Command{
		Use:   "ixml [flags] GRAMMAR INPUT",
		Short: "Compile an Invisible XML grammar, and parse input with the resulting parser",
		Long: `Compile an Invisible XML grammar, and parse input with the resulting parser.

GRAMMAR and INPUT are file paths, or literal text when prefixed with '!'.
The XML document is written to standard output. Grammar and input errors
produce an <error> document and exit 0 unless --fail-on-error is given.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			grammarText, err := readArg(args[0])
			if err != nil {
				log.Error(err)
				os.Exit(ExitIOError)
			}
			inputText, err := readArg(args[1])
			if err != nil {
				log.Error(err)
				os.Exit(ExitIOError)
			}
			log.Debugf("grammar: %d bytes, input: %d bytes", len(grammarText), len(inputText))

			compileStart := time.Now()
			proc, err := ixml.NewProcessor(grammarText, engine.Options{InstructionBudget: budget})
			if err != nil {
				log.WithField("type", ixerrors.TypeOf(err)).Error(err)
				if failOnError {
					os.Exit(ExitGrammarError)
				}
				fmt.Print(ixml.ErrorDocument(err))
				os.Exit(ExitSuccess)
			}
			if timing {
				log.Infof("grammar compiled in %v", time.Since(compileStart))
			}
			if verbose {
				log.Debug(proc.Analyze().Report())
			}

			parseStart := time.Now()
			doc, err := proc.ParseDocument(inputText, indent)
			if err != nil {
				log.WithField("type", ixerrors.TypeOf(err)).Error(err)
				if failOnError {
					os.Exit(ExitParseError)
				}
				fmt.Print(ixml.ErrorDocument(err))
				os.Exit(ExitSuccess)
			}
			if timing {
				log.Infof("input parsed in %v", time.Since(parseStart))
				log.Infof("total time %v", time.Since(compileStart))
			}

			fmt.Print(doc)
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&indent, "indent", false, "Indent the XML output")
	rootCmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "Exit non-zero on grammar or input errors instead of writing an error document")
	rootCmd.Flags().BoolVar(&timing, "timing", false, "Report compile and parse timings on stderr")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose diagnostics, including grammar analysis")
	rootCmd.Flags().Uint64Var(&budget, "budget", 0, "Abort parsing after this many parse operations (0 = unlimited)")

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(ExitUsageError)
	}
}

// readArg resolves a grammar/input argument: a '!' prefix marks literal
// text, anything else is a file path.
func readArg(arg string) (string, error) {
	if len(arg) > 0 && arg[0] == '!' {
		return arg[1:], nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", ixerrors.Wrap(ixerrors.ErrInputRead, fmt.Sprintf("failed to read %s", arg), err)
	}
	return string(data), nil
}

// Package prismcli implements prismctl, the operator-facing command-line
// tool for inspecting and driving a prismbuffer directory. None of it is
// part of the core coordinator contract; it is a thin client over the
// buffer package.
package prismcli

import (
	"context"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
)

// Run is prismctl's entry point. Returns a process exit code.
func Run(in io.Reader, out, errOut io.Writer, args []string) int {
	globalFlags := flag.NewFlagSet("prismctl", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "show help")
	flagConfig := globalFlags.StringP("config", "c", "", "path to a JSONC config file")

	err := globalFlags.Parse(args[1:])
	if err != nil {
		_, _ = io.WriteString(errOut, "error: "+err.Error()+"\n")

		return 1
	}

	configPath := *flagConfig
	if configPath == "" {
		wd, wdErr := os.Getwd()
		if wdErr == nil {
			configPath = DefaultConfigPath(wd)
		}
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		_, _ = io.WriteString(errOut, "error: "+err.Error()+"\n")

		return 1
	}

	commands := []*Command{
		PushCmd(cfg),
		PopCmd(cfg),
		StatsCmd(cfg),
		InspectCmd(cfg),
		FsckCmd(cfg),
	}

	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	rest := globalFlags.Args()

	if *flagHelp || len(rest) == 0 {
		printUsage(out, commands)

		return 0
	}

	cmd, ok := commandMap[rest[0]]
	if !ok {
		_, _ = io.WriteString(errOut, "error: unknown command: "+rest[0]+"\n")
		printUsage(errOut, commands)

		return 1
	}

	cmdIO := &IO{In: in, Out: out, Err: errOut}

	return cmd.Run(context.Background(), cmdIO, rest[1:])
}

func printUsage(w io.Writer, commands []*Command) {
	_, _ = io.WriteString(w, "Usage: prismctl <command> [flags]\n\nCommands:\n")

	for _, cmd := range commands {
		_, _ = io.WriteString(w, cmd.HelpLine()+"\n")
	}
}

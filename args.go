package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

// Args are command line arguments.
type Args struct {
	Command    string
	ConfigFile string

	// HashPassword is the plaintext value to hash for the hash-password
	// subcommand.
	HashPassword string
}

// getArgs parses the command line. The first positional argument selects a
// subcommand (start/gen-config/hash-password); it defaults to "start" if
// omitted so running the binary with only -conf still works.
func getArgs() *Args {
	configFile := flag.String("conf", "", "Configuration file.")

	flag.Parse()

	command := "start"
	rest := flag.Args()
	if len(rest) > 0 {
		command = rest[0]
		rest = rest[1:]
	}

	switch command {
	case "start":
		if len(*configFile) == 0 {
			printUsage(fmt.Errorf("you must provide a configuration file with -conf"))
			return nil
		}
		configPath, err := filepath.Abs(*configFile)
		if err != nil {
			printUsage(fmt.Errorf(
				"unable to determine path to the configuration file: %s", err))
			return nil
		}
		return &Args{Command: "start", ConfigFile: configPath}

	case "gen-config":
		return &Args{Command: "gen-config"}

	case "hash-password":
		if len(rest) != 1 {
			printUsage(fmt.Errorf("hash-password takes exactly one argument: the plaintext password"))
			return nil
		}
		return &Args{Command: "hash-password", HashPassword: rest[0]}

	default:
		printUsage(fmt.Errorf("unknown command: %s", command))
		return nil
	}
}

func printUsage(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%s\n", err)
	_, _ = fmt.Fprintf(os.Stderr,
		"Usage: %s [-conf <file>] {start|gen-config|hash-password <password>}\n",
		os.Args[0])
	flag.PrintDefaults()
}

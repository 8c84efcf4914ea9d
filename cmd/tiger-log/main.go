// Command tiger-log views and analyzes Tiger serial traffic log files.
//
// Log files are created by attaching a file logger to the serial port,
// e.g. via the tiger-shell -log flag.
//
// Usage:
//
//	tiger-log <command> [flags] <file.tlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	tiger-log view session.tlog
//
//	# View only answers
//	tiger-log view -direction in session.tlog
//
//	# Export to JSONL
//	tiger-log export session.tlog > session.jsonl
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/asi-tiger/tiger-go/pkg/log"
)

const usage = `tiger-log - Tiger serial traffic log analyzer

Usage:
  tiger-log <command> [flags] <file.tlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL
  stats    Show statistics about the log file

Use "tiger-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "view":
		err = runView(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "tiger-log:", err)
		os.Exit(1)
	}
}

// parseFilter builds an event filter from the shared flag set.
func parseFilter(fs *flag.FlagSet, args []string) (string, log.Filter, error) {
	direction := fs.String("direction", "", "filter by direction: out, in")
	category := fs.String("category", "", "filter by category: command, answer, state, error")
	session := fs.String("session", "", "filter by session ID")
	if err := fs.Parse(args); err != nil {
		return "", log.Filter{}, err
	}
	if fs.NArg() != 1 {
		return "", log.Filter{}, fmt.Errorf("expected exactly one log file argument")
	}

	filter := log.Filter{SessionID: *session}
	switch *direction {
	case "":
	case "out":
		d := log.DirectionOut
		filter.Direction = &d
	case "in":
		d := log.DirectionIn
		filter.Direction = &d
	default:
		return "", log.Filter{}, fmt.Errorf("unknown direction %q", *direction)
	}
	switch *category {
	case "":
	case "command":
		c := log.CategoryCommand
		filter.Category = &c
	case "answer":
		c := log.CategoryAnswer
		filter.Category = &c
	case "state":
		c := log.CategoryState
		filter.Category = &c
	case "error":
		c := log.CategoryError
		filter.Category = &c
	default:
		return "", log.Filter{}, fmt.Errorf("unknown category %q", *category)
	}
	return fs.Arg(0), filter, nil
}

func runView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	path, filter, err := parseFilter(fs, args)
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		printEvent(event)
	}
}

func printEvent(e log.Event) {
	ts := e.Timestamp.Format("15:04:05.000")
	switch e.Category {
	case log.CategoryCommand:
		fmt.Printf("%s %s COMMAND %q\n", ts, e.Direction, e.Command)
	case log.CategoryAnswer:
		fmt.Printf("%s %s ANSWER  %q -> %q (%s)\n", ts, e.Direction, e.Command, e.Answer, e.Elapsed)
	case log.CategoryState:
		fmt.Printf("%s %s STATE   %s -> %s (%s)\n", ts, e.Direction, e.State.OldState, e.State.NewState, e.State.Reason)
	case log.CategoryError:
		fmt.Printf("%s %s ERROR   %q: %s\n", ts, e.Direction, e.Command, e.Error.Message)
	default:
		fmt.Printf("%s %s UNKNOWN\n", ts, e.Direction)
	}
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	path, filter, err := parseFilter(fs, args)
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer reader.Close()

	enc := json.NewEncoder(os.Stdout)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := enc.Encode(exportEvent(event)); err != nil {
			return err
		}
	}
}

// jsonEvent is the JSONL export shape, with readable field names instead of
// the compact integer CBOR keys.
type jsonEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	SessionID string     `json:"session_id"`
	Port      string     `json:"port,omitempty"`
	Direction string     `json:"direction"`
	Category  string     `json:"category"`
	Command   string     `json:"command,omitempty"`
	Answer    string     `json:"answer,omitempty"`
	ElapsedUs int64      `json:"elapsed_us,omitempty"`
	State     *jsonState `json:"state,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type jsonState struct {
	OldState string `json:"old_state,omitempty"`
	NewState string `json:"new_state"`
	Reason   string `json:"reason,omitempty"`
}

func exportEvent(e log.Event) jsonEvent {
	out := jsonEvent{
		Timestamp: e.Timestamp,
		SessionID: e.SessionID,
		Port:      e.Port,
		Direction: e.Direction.String(),
		Category:  e.Category.String(),
		Command:   e.Command,
		Answer:    e.Answer,
		ElapsedUs: e.Elapsed.Microseconds(),
	}
	if e.State != nil {
		out.State = &jsonState{
			OldState: e.State.OldState,
			NewState: e.State.NewState,
			Reason:   e.State.Reason,
		}
	}
	if e.Error != nil {
		out.Error = e.Error.Message
	}
	return out
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	path, filter, err := parseFilter(fs, args)
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer reader.Close()

	var (
		total      int
		byCategory [4]int
		commands   = make(map[string]int)
		elapsedSum time.Duration
		answers    int
		first      time.Time
		last       time.Time
	)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		total++
		if int(event.Category) < len(byCategory) {
			byCategory[event.Category]++
		}
		if event.Category == log.CategoryCommand {
			commands[commandVerb(event.Command)]++
		}
		if event.Category == log.CategoryAnswer {
			answers++
			elapsedSum += event.Elapsed
		}
		if first.IsZero() || event.Timestamp.Before(first) {
			first = event.Timestamp
		}
		if event.Timestamp.After(last) {
			last = event.Timestamp
		}
	}

	fmt.Printf("events:   %d\n", total)
	if total == 0 {
		return nil
	}
	fmt.Printf("span:     %s\n", last.Sub(first).Round(time.Millisecond))
	fmt.Printf("commands: %d\n", byCategory[log.CategoryCommand])
	fmt.Printf("answers:  %d\n", byCategory[log.CategoryAnswer])
	fmt.Printf("states:   %d\n", byCategory[log.CategoryState])
	fmt.Printf("errors:   %d\n", byCategory[log.CategoryError])
	if answers > 0 {
		fmt.Printf("avg rtt:  %s\n", (elapsedSum / time.Duration(answers)).Round(time.Microsecond))
	}
	fmt.Println("top command verbs:")
	for verb, n := range commands {
		fmt.Printf("  %-8s %d\n", verb, n)
	}
	return nil
}

// commandVerb extracts the command word, dropping the card address prefix
// and axis arguments, so stats group "1RM F?" and "2RM X?" together.
func commandVerb(cmd string) string {
	start := 0
	for start < len(cmd) && (cmd[start] >= '0' && cmd[start] <= '9') {
		start++
	}
	end := start
	for end < len(cmd) && cmd[end] != ' ' {
		end++
	}
	if start == end {
		return cmd
	}
	return cmd[start:end]
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/tejjnayak/rewind/internal/app"
	"github.com/tejjnayak/rewind/internal/proto"
)

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	activeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	barStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
)

const replHelp = `Commands:
  :versions          list all conversation versions
  :restore <id>      make an earlier version active again
  :show <id>         print a version's transcript
  :log               show the change log
  :usage             plot token usage per version
  :stats             show session totals
  :prune <i> [j...]  delete messages by index from the active version
  :save <name>       label the active version
  :help              show this help
  :quit              exit

Anything else is sent to the model.`

// repl is the interactive chat loop. It reads one line at a time; lines
// starting with ':' are commands, everything else goes to the model.
type repl struct {
	app *app.App
	in  io.Reader
	out io.Writer
}

func newRepl(app *app.App, in io.Reader, out io.Writer) *repl {
	return &repl{app: app, in: in, out: out}
}

func (r *repl) run(ctx context.Context) error {
	cfg := r.app.Config()
	fmt.Fprintln(r.out, statusStyle.Render(fmt.Sprintf("rewind — %s via %s (:help for commands)", cfg.Model, cfg.Provider)))

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(r.out, promptStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if name, args, ok := parseCommand(line); ok {
			if quit := r.dispatch(name, args); quit {
				return nil
			}
			continue
		}

		r.submit(ctx, line)
	}
}

// parseCommand splits a ':'-prefixed line into a command name and its
// arguments. Returns ok=false for plain chat input.
func parseCommand(line string) (name string, args []string, ok bool) {
	if !strings.HasPrefix(line, ":") {
		return "", nil, false
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

// dispatch runs one command; the return value reports whether to exit.
func (r *repl) dispatch(name string, args []string) bool {
	switch name {
	case "quit", "exit", "q":
		return true
	case "help":
		fmt.Fprintln(r.out, replHelp)
	case "versions":
		r.printVersions()
	case "restore":
		r.restore(args)
	case "show":
		r.show(args)
	case "log":
		r.printLog()
	case "usage":
		r.printUsage()
	case "stats":
		r.printStats()
	case "prune":
		r.prune(args)
	case "save":
		r.save(args)
	default:
		r.errorf("unknown command %q, try :help", name)
	}
	return false
}

func (r *repl) submit(ctx context.Context, text string) {
	version, err := r.app.Engine.Submit(ctx, text)
	if err != nil {
		r.errorf("%v", err)
		return
	}

	fmt.Fprintln(r.out, assistantStyle.Render(version.LastAssistant()))
	status := fmt.Sprintf("[v%d | +%d tokens | %d total | $%.4f]",
		version.ID, version.Usage.Total(), version.CumulativeTokens, version.Cost)
	if version.Estimated {
		status += " (estimated)"
	}
	fmt.Fprintln(r.out, statusStyle.Render(status))
}

func (r *repl) printVersions() {
	activeID := r.app.Sessions.Active().ID
	for version := range r.app.Sessions.History() {
		marker := "  "
		style := statusStyle
		if version.ID == activeID {
			marker = "* "
			style = activeStyle
		}
		label := ""
		if version.Label != "" {
			label = fmt.Sprintf(" %q", version.Label)
		}
		line := fmt.Sprintf("%sv%d%s — %d messages, %d tokens, $%.4f (%s)",
			marker, version.ID, label, len(version.Messages), version.CumulativeTokens,
			version.Cost, formatTimestamp(version.CreatedAt))
		fmt.Fprintln(r.out, style.Render(line))
	}
}

func (r *repl) restore(args []string) {
	if len(args) != 1 {
		r.errorf("usage: :restore <id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		r.errorf("invalid version id %q", args[0])
		return
	}
	version, err := r.app.Sessions.Restore(id)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	fmt.Fprintln(r.out, statusStyle.Render(fmt.Sprintf(
		"restored v%d as v%d — %d messages, %d tokens",
		id, version.ID, len(version.Messages), version.CumulativeTokens)))
}

func (r *repl) show(args []string) {
	if len(args) != 1 {
		r.errorf("usage: :show <id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		r.errorf("invalid version id %q", args[0])
		return
	}
	version, err := r.app.Sessions.Get(id)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	fmt.Fprint(r.out, renderTranscript(version))
}

// renderTranscript formats a version's full message history, one message
// per block, with a summary header.
func renderTranscript(version proto.Version) string {
	var b strings.Builder

	header := fmt.Sprintf("v%d — %d messages, %d tokens, $%.4f",
		version.ID, len(version.Messages), version.CumulativeTokens, version.Cost)
	if version.Label != "" {
		header += fmt.Sprintf(" %q", version.Label)
	}
	b.WriteString(statusStyle.Render(header))
	b.WriteString("\n")

	for i, msg := range version.Messages {
		b.WriteString(promptStyle.Render(fmt.Sprintf("[%d] %s", i, msg.Role)))
		b.WriteString("\n")
		b.WriteString(assistantStyle.Render(msg.Content))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *repl) printLog() {
	for entry := range r.app.Sessions.Log() {
		line := fmt.Sprintf("%s  %-8s v%d", formatTimestamp(entry.Timestamp), entry.Event, entry.VersionID)
		if entry.RestoredFrom != nil {
			line += fmt.Sprintf(" (from v%d)", *entry.RestoredFrom)
		}
		fmt.Fprintln(r.out, statusStyle.Render(line))
	}
}

func (r *repl) printUsage() {
	points := r.app.Sessions.Usage()
	fmt.Fprint(r.out, renderUsageChart(points, 40))
}

// renderUsageChart draws a horizontal bar per version, scaled to the largest
// exchange. Width is the bar length of the largest point.
func renderUsageChart(points []proto.UsagePoint, width int) string {
	var peak int64
	for _, p := range points {
		if p.TotalTokens > peak {
			peak = p.TotalTokens
		}
	}

	var b strings.Builder
	for _, p := range points {
		bar := ""
		if peak > 0 {
			n := int(p.TotalTokens * int64(width) / peak)
			if p.TotalTokens > 0 && n == 0 {
				n = 1
			}
			bar = strings.Repeat("█", n)
		}
		fmt.Fprintf(&b, "v%-3d %s %d (%d in / %d out, %d cumulative)\n",
			p.VersionID, barStyle.Render(bar), p.TotalTokens,
			p.PromptTokens, p.CompletionTokens, p.CumulativeTokens)
	}
	return b.String()
}

func (r *repl) printStats() {
	stats := r.app.Sessions.Stats()
	fmt.Fprintln(r.out, statusStyle.Render(fmt.Sprintf(
		"session %s\n%d versions, %d messages in active version\n%d prompt + %d completion tokens, $%.4f",
		stats.ID, stats.VersionCount, stats.MessageCount,
		stats.PromptTokens, stats.CompletionTokens, stats.Cost)))
}

func (r *repl) prune(args []string) {
	if len(args) == 0 {
		r.errorf("usage: :prune <index> [index...]")
		return
	}
	indexes := make([]int, 0, len(args))
	for _, arg := range args {
		i, err := strconv.Atoi(arg)
		if err != nil {
			r.errorf("invalid message index %q", arg)
			return
		}
		indexes = append(indexes, i)
	}
	version, err := r.app.Sessions.Prune(indexes)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	fmt.Fprintln(r.out, statusStyle.Render(fmt.Sprintf(
		"pruned %d message(s), now v%d with %d messages",
		len(indexes), version.ID, len(version.Messages))))
}

func (r *repl) save(args []string) {
	if len(args) == 0 {
		r.errorf("usage: :save <name>")
		return
	}
	label := strings.Join(args, " ")
	activeID := r.app.Sessions.Active().ID
	if err := r.app.Sessions.Label(activeID, label); err != nil {
		r.errorf("%v", err)
		return
	}
	fmt.Fprintln(r.out, statusStyle.Render(fmt.Sprintf("saved v%d as %q", activeID, label)))
}

func (r *repl) errorf(format string, args ...any) {
	fmt.Fprintln(r.out, errorStyle.Render(fmt.Sprintf(format, args...)))
}

func formatTimestamp(unixMilli int64) string {
	return time.UnixMilli(unixMilli).Format("15:04:05")
}

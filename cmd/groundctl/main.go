package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"groundlink/pkg/client"
	"groundlink/pkg/models"

	"github.com/dustin/go-humanize"
)

const (
	defaultServerURL     = "http://127.0.0.1:8090"
	defaultSize          = "10MiB"
	defaultWatchInterval = time.Second
	defaultHTTPTimeout   = 30 * time.Second
	tabPadding           = 2
)

var errUsage = errors.New("usage")

type command struct {
	name    string
	args    string
	summary string
	run     func(ctx context.Context, c *client.Client, args []string, out io.Writer) error
}

var commands = []command{
	{"stations", "", "list stations", runStations},
	{"health", "[STATION]", "show station health", runHealth},
	{"route", "FROM TO", "show the path between two stations", runRoute},
	{"submit", "-from A -to B [-size 10MiB] [-priority P] [-encryption E] [-id ID]", "queue a transfer", runSubmit},
	{"status", "ID", "show one transfer", runStatus},
	{"list", "[-status S]", "list transfers", runList},
	{"cancel", "ID", "cancel a pending transfer", runCancel},
	{"stop", "ID", "stop a processing transfer", runStop},
	{"watch", "[-interval 1s] ID", "follow a transfer until it finishes", runWatch},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
		} else {
			fmt.Fprintf(os.Stderr, "groundctl: %v\n", err)
		}
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("groundctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	serverURL := global.String("server", envOr("GROUNDLINK_URL", defaultServerURL), "groundlink API URL")
	timeout := global.Duration("timeout", defaultHTTPTimeout, "HTTP request timeout")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}

	for _, cmd := range commands {
		if cmd.name == rest[0] {
			c := client.New(*serverURL, client.Options{Timeout: *timeout})
			return cmd.run(ctx, c, rest[1:], out)
		}
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: groundctl [-server URL] [-timeout D] COMMAND [ARGS]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	for _, cmd := range commands {
		fmt.Fprintf(tw, "  %s %s\t%s\n", cmd.name, cmd.args, cmd.summary)
	}
	_ = tw.Flush()
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func runStations(ctx context.Context, c *client.Client, _ []string, out io.Writer) error {
	stations, err := c.Stations(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVALIDATORS\tMIN STAKE\tUPTIME REQ\tHUB")
	for _, station := range stations {
		hub := ""
		if station.Hub {
			hub = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.2f\t%s\n",
			station.ID, station.Name, len(station.Validators), station.MinStake, station.UptimeRequirement, hub)
	}
	return tw.Flush()
}

func runHealth(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	var reports []models.HealthReport
	switch len(args) {
	case 0:
		all, err := c.Health(ctx)
		if err != nil {
			return err
		}
		reports = all
	case 1:
		report, err := c.StationHealth(ctx, args[0])
		if err != nil {
			return err
		}
		reports = []models.HealthReport{report}
	default:
		return errUsage
	}

	tw := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "STATION\tHEALTHY\tUPTIME\tCONSENSUS\tLATENCY\tTHROUGHPUT\tLAST SEEN")
	for _, report := range reports {
		fmt.Fprintf(tw, "%s\t%t\t%.4f\t%.4f\t%.1fms\t%s/s\t%s\n",
			report.StationID, report.Healthy, report.Uptime, report.ConsensusRate, report.LatencyMs,
			humanize.IBytes(uint64(report.Throughput)), humanize.Comma(int64(report.LastSeen)))
	}
	return tw.Flush()
}

func runRoute(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	route, err := c.Route(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.Join(route.Path, " -> "))
	return nil
}

func runSubmit(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("submit", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	id := flags.String("id", "", "transfer id (generated when empty)")
	from := flags.String("from", "", "source station")
	to := flags.String("to", "", "destination station")
	size := flags.String("size", defaultSize, "payload size, e.g. 512KiB or 2GB")
	priority := flags.String("priority", string(models.PriorityMedium), "low, medium, high or critical")
	encryption := flags.String("encryption", string(models.SchemeAES256), "AES-256 or ChaCha20-Poly1305")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if *from == "" || *to == "" {
		return fmt.Errorf("%w: -from and -to are required", errUsage)
	}

	bytes, err := humanize.ParseBytes(*size)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", *size, err)
	}

	requestID, err := c.Submit(ctx, models.SubmitRequest{
		ID:          *id,
		Source:      *from,
		Destination: *to,
		Size:        int64(bytes),
		Priority:    models.Priority(*priority),
		Encryption:  models.Scheme(*encryption),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "queued %s (%s, %s -> %s)\n", requestID, humanize.IBytes(bytes), *from, *to)
	return nil
}

func runStatus(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	state, err := c.Transfer(ctx, args[0])
	if err != nil {
		return err
	}
	printState(out, state)
	return nil
}

func runList(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("list", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	status := flags.String("status", "", "only transfers with this status")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	states, err := c.Transfers(ctx, *status)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPROGRESS\tROUTE\tSIZE\tPRIORITY\tSUBMITTED")
	for _, state := range states {
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%s\t%s\t%s\t%s\n",
			state.RequestID, state.Status, state.Progress, strings.Join(state.Path, ">"),
			humanize.IBytes(uint64(state.Request.Size)), state.Request.Priority, humanize.Time(state.SubmittedAt))
	}
	return tw.Flush()
}

func runCancel(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	cancelled, err := c.Cancel(ctx, args[0])
	if err != nil {
		return err
	}
	if !cancelled {
		return fmt.Errorf("transfer %s is not pending", args[0])
	}
	fmt.Fprintf(out, "cancelled %s\n", args[0])
	return nil
}

func runStop(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	stopped, err := c.Stop(ctx, args[0])
	if err != nil {
		return err
	}
	if !stopped {
		return fmt.Errorf("transfer %s is not processing", args[0])
	}
	fmt.Fprintf(out, "stopped %s\n", args[0])
	return nil
}

func runWatch(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	interval := flags.Duration("interval", defaultWatchInterval, "poll interval")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if flags.NArg() != 1 {
		return errUsage
	}
	id := flags.Arg(0)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	last := ""
	for {
		state, err := c.Transfer(ctx, id)
		if err != nil {
			return err
		}

		line := progressLine(state)
		if line != last {
			fmt.Fprintln(out, line)
			last = line
		}
		if state.Status.IsTerminal() {
			if state.Status == models.StatusFailed {
				return fmt.Errorf("transfer %s failed: %s", id, state.Error)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func progressLine(state models.TransferState) string {
	switch state.Status {
	case models.StatusProcessing:
		return fmt.Sprintf("%-10s %5.1f%%  hop %d/%d %s -> %s  %5.1f%%  eta %ds",
			state.Status, state.Progress, state.Hop+1, max(len(state.Path)-1, 1),
			state.Current, state.Next, state.HopProgress, state.EstimatedSeconds)
	case models.StatusFailed:
		return fmt.Sprintf("%-10s %5.1f%%  %s", state.Status, state.Progress, state.Error)
	default:
		return fmt.Sprintf("%-10s %5.1f%%", state.Status, state.Progress)
	}
}

func printState(out io.Writer, state models.TransferState) {
	tw := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", state.RequestID)
	fmt.Fprintf(tw, "status:\t%s\n", state.Status)
	fmt.Fprintf(tw, "progress:\t%.1f%%\n", state.Progress)
	fmt.Fprintf(tw, "route:\t%s\n", strings.Join(state.Path, " -> "))
	fmt.Fprintf(tw, "current:\t%s\n", state.Current)
	fmt.Fprintf(tw, "next:\t%s\n", state.Next)
	fmt.Fprintf(tw, "size:\t%s\n", humanize.IBytes(uint64(state.Request.Size)))
	fmt.Fprintf(tw, "priority:\t%s\n", state.Request.Priority)
	fmt.Fprintf(tw, "encryption:\t%s\n", state.Request.Encryption)
	fmt.Fprintf(tw, "eta:\t%ds\n", state.EstimatedSeconds)
	fmt.Fprintf(tw, "submitted:\t%s\n", humanize.Time(state.SubmittedAt))
	if state.Error != "" {
		fmt.Fprintf(tw, "error:\t%s\n", state.Error)
	}
	_ = tw.Flush()
}

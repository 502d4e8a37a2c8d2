package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/HarrisonTotty/remote-framework/internal/config"
	"github.com/HarrisonTotty/remote-framework/internal/errors"
	"github.com/HarrisonTotty/remote-framework/internal/executor"
	"github.com/HarrisonTotty/remote-framework/internal/inventory"
	"github.com/HarrisonTotty/remote-framework/internal/logging"
	"github.com/HarrisonTotty/remote-framework/internal/output"
	"github.com/HarrisonTotty/remote-framework/internal/resolve"
	"github.com/HarrisonTotty/remote-framework/internal/run"
	"github.com/HarrisonTotty/remote-framework/internal/ssh"
)

var (
	// Build-time variables (set via -ldflags)
	version = "dev"

	// Global configuration
	cfg *config.Config

	// CLI flags
	commandFlag    string
	taskSpec       string
	parallel       bool
	parallelWidth  int
	userFlag       string
	passwordFlag   string
	certFlag       string
	portFlag       int
	timeoutFlag    time.Duration
	authTimeout    time.Duration
	commandTimeout time.Duration
	configFile     string
	listTargets    bool
	listTasks      bool
	dryRun         bool
	logFile        string
	logLevel       string
	logMode        string
	logFormat      string
	noColor        bool
	outputOnly     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errors.ExitCode(err))
	}
}

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   "remote TARGETS... (-c COMMAND | -r \"TASK [ARGS...]\")",
		Short: "Execute commands and tasks across remote hosts over SSH",
		Long: `remote fans a command or a named task out to one or more remote hosts,
sequentially or in parallel, and reduces the per-host outcomes to a single
verdict.

Targets are resolved against the YAML configuration file: names matching a
configured target expand that target's host patterns, anything else is
treated as an ad hoc host pattern. Host patterns support bracket ranges and
lists, e.g. "web[1-4].example.com" or "db-[east,west]".

Examples:
  # Run a command against a configured target
  remote web -c "systemctl restart nginx"

  # Run a named task with arguments across two targets, in parallel
  remote web db -P -r "deploy v1.2.0"

  # Ad hoc hosts with invocation-level authentication
  remote "node[1-8]" -u root -p secret -c uptime

  # Show what would run without connecting
  remote web --dry-run -c uptime`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			manager := config.NewManager()
			applyChangedFlags(cmd, manager)
			loaded, err := manager.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), args)
		},
	}
}

func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&commandFlag, "command", "c", "", "Literal command to execute on each host")
	flags.StringVarP(&taskSpec, "run", "r", "", "Named task to execute, with optional positional arguments")

	flags.BoolVarP(&parallel, "parallel", "P", false, "Execute across hosts in parallel")
	flags.IntVar(&parallelWidth, "parallel-width", config.DefaultParallelWidth, "Maximum concurrent hosts in parallel mode")

	flags.StringVarP(&userFlag, "user", "u", "", "Default user to connect as")
	flags.StringVarP(&passwordFlag, "password", "p", "", "Default password to authenticate with")
	flags.StringVar(&certFlag, "cert", "", "Default certificate file to authenticate with")
	flags.IntVar(&portFlag, "port", 22, "Default port to connect to")

	flags.DurationVarP(&timeoutFlag, "timeout", "t", 5*time.Second, "Connection timeout")
	flags.DurationVar(&authTimeout, "auth-timeout", 5*time.Second, "Authentication handshake timeout")
	flags.DurationVarP(&commandTimeout, "command-timeout", "T", 0, "Per-command timeout (0 relies on transport behavior)")

	flags.StringVarP(&configFile, "config-file", "y", "", "Configuration file path (default ~/remote.yaml)")
	flags.BoolVar(&listTargets, "list-targets", false, "List configured targets and exit")
	flags.BoolVar(&listTasks, "list-tasks", false, "List configured tasks and exit")
	flags.BoolVarP(&dryRun, "dry-run", "d", false, "Resolve and print the execution plan without connecting")

	flags.StringVarP(&logFile, "log-file", "f", "", "Log file path (default ~/remote.log)")
	flags.StringVarP(&logLevel, "log-level", "l", "info", "Log level (info, debug)")
	flags.StringVarP(&logMode, "log-mode", "m", "append", "Log file mode (append, overwrite)")
	flags.StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	flags.BoolVar(&noColor, "no-color", false, "Disable colorized output")
	flags.BoolVarP(&outputOnly, "output-only", "o", false, "Emit only the machine-readable output stream")
}

// applyChangedFlags pushes explicitly-set flags into the configuration,
// taking precedence over environment variables and defaults.
func applyChangedFlags(cmd *cobra.Command, manager *config.Manager) {
	flags := cmd.Flags()
	if flags.Changed("user") {
		manager.Set("user", userFlag)
	}
	if flags.Changed("password") {
		manager.Set("password", passwordFlag)
	}
	if flags.Changed("cert") {
		manager.Set("cert", certFlag)
	}
	if flags.Changed("port") {
		manager.Set("port", portFlag)
	}
	if flags.Changed("timeout") {
		manager.Set("timeout", timeoutFlag)
	}
	if flags.Changed("auth-timeout") {
		manager.Set("auth-timeout", authTimeout)
	}
	if flags.Changed("command-timeout") {
		manager.Set("command-timeout", commandTimeout)
	}
	if flags.Changed("config-file") {
		manager.Set("config-file", configFile)
	}
	if flags.Changed("log-file") {
		manager.Set("log-file", logFile)
	}
	if flags.Changed("log-level") {
		manager.Set("log-level", logLevel)
	}
	if flags.Changed("log-mode") {
		manager.Set("log-mode", logMode)
	}
	if flags.Changed("log-format") {
		manager.Set("log-format", logFormat)
	}
	if flags.Changed("parallel-width") {
		manager.Set("parallel-width", parallelWidth)
	}
}

func execute(ctx context.Context, targets []string) error {
	console := newConsole()

	inv, err := inventory.Load(cfg.ConfigFile, configFileExplicit())
	if err != nil {
		return err
	}

	if listTargets || listTasks {
		printListings(console, inv)
		return nil
	}

	if len(targets) == 0 {
		return errors.New(errors.Setup, "at least one target must be specified")
	}
	if (commandFlag == "") == (taskSpec == "") {
		return errors.New(errors.Setup, "exactly one of --command or --run must be specified")
	}

	defaults := resolve.Defaults{
		User:     cfg.User,
		Password: cfg.Password,
		Cert:     cfg.Cert,
		Port:     cfg.Port,
		HasAgent: os.Getenv("SSH_AUTH_SOCK") != "",
	}
	plan, err := resolve.Targets(targets, inv, defaults)
	if err != nil {
		return err
	}

	command, args, err := resolveCommand(inv)
	if err != nil {
		return err
	}

	if dryRun {
		printPlan(console, plan, command, args)
		return nil
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Mode:   cfg.LogMode,
	})
	if err != nil {
		return errors.Wrap(errors.Setup, "unable to initialize logging", err)
	}
	defer logger.Close()
	runLogger := logger.WithRun(uuid.New())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return executeRun(ctx, runLogger, console, plan, command, args)
}

// executeRun connects, dispatches, and aggregates one run.
func executeRun(ctx context.Context, logger *logging.Logger, console *output.Console, plan *resolve.Plan, command string, args []string) error {
	hosts := plan.Hosts()
	start := time.Now()
	logger.LogRunStart(len(hosts), parallel, cfg.ParallelWidth)

	dialer := &ssh.ClientDialer{
		Options: ssh.Options{
			ConnectTimeout: cfg.Timeout,
			AuthTimeout:    cfg.AuthTimeout,
			CommandTimeout: cfg.CommandTimeout,
		},
		Logger: logger,
	}
	manager := ssh.NewManager(dialer, logger)

	console.Section("Connecting to hosts...")
	results := make([]*run.Result, len(hosts))
	var conns []*ssh.Connection
	var connIdx []int
	for i, host := range hosts {
		if ctx.Err() != nil {
			results[i] = &run.Result{
				Host:     host.Name,
				ExitCode: -1,
				Err:      errors.New(errors.Interrupted, "run interrupted before connection"),
			}
			continue
		}
		conn, err := manager.Open(ctx, host)
		if err != nil {
			console.HostError(host.Name, "Unable to connect - "+err.Error())
			results[i] = &run.Result{Host: host.Name, ExitCode: -1, Err: err}
			continue
		}
		conns = append(conns, conn)
		connIdx = append(connIdx, i)
	}

	mode := executor.Sequential
	if parallel {
		mode = executor.Parallel
	}
	engine := executor.New(executor.Config{Mode: mode, Width: cfg.ParallelWidth})
	rc := &executor.RunContext{
		Command: command,
		Args:    args,
		Logger:  logger,
		Console: console,
	}

	console.Section("Executing command(s)...")
	execResults := engine.Run(ctx, rc, conns)
	for i, r := range execResults {
		results[connIdx[i]] = r
	}

	for _, conn := range conns {
		manager.Close(conn)
	}

	verdict := run.Aggregate(results, time.Since(start))
	logger.LogRunComplete(verdict.Total, verdict.Succeeded, verdict.Failed, verdict.Duration)
	printVerdict(console, verdict)
	return verdict.Err()
}

// resolveCommand materializes the remote command from either the literal
// --command value or a configured task plus its arguments.
func resolveCommand(inv *inventory.Inventory) (string, []string, error) {
	if commandFlag != "" {
		return commandFlag, nil, nil
	}
	name, args := resolve.SplitTaskArgs(taskSpec)
	if name == "" {
		return "", nil, errors.New(errors.Setup, "a task name must be specified with --run")
	}
	task, err := resolve.Task(name, inv)
	if err != nil {
		return "", nil, err
	}
	return task.Cmd, args, nil
}

// configFileExplicit reports whether the operator named the configuration
// file, via flag or environment, rather than relying on the default path.
func configFileExplicit() bool {
	if rootCmd.Flags().Changed("config-file") {
		return true
	}
	return os.Getenv(config.EnvPrefix+"_CONFIG_FILE") != ""
}

func newConsole() *output.Console {
	plain := outputOnly || !stdoutIsTTY()
	return output.NewConsole(os.Stdout, !noColor, plain)
}

func stdoutIsTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// printListings prints the configured targets and/or tasks, aligned.
func printListings(console *output.Console, inv *inventory.Inventory) {
	if listTargets {
		console.Section("Configured targets:")
		names := inv.TargetNames()
		width := maxLen(names)
		for _, name := range names {
			t := inv.Targets[name]
			console.Host(fmt.Sprintf("%-*s  %v", width, name, t.Hosts))
		}
	}
	if listTasks {
		console.Section("Configured tasks:")
		names := inv.TaskNames()
		width := maxLen(names)
		for _, name := range names {
			t := inv.Tasks[name]
			console.Host(fmt.Sprintf("%-*s  %s", width, name, t.Desc))
		}
	}
}

// printPlan prints the resolved execution plan for a dry run.
func printPlan(console *output.Console, plan *resolve.Plan, command string, args []string) {
	mode := "sequentially"
	if parallel {
		mode = fmt.Sprintf("in parallel (width %d)", cfg.ParallelWidth)
	}
	full := command
	for _, arg := range args {
		full += " " + arg
	}
	console.Section(fmt.Sprintf("Would execute %q %s on:", full, mode))
	for _, bucket := range plan.Order {
		for _, host := range plan.Buckets[bucket] {
			console.Host(fmt.Sprintf("%s@%s:%d", host.User, host.Name, host.Port))
		}
	}
}

// printVerdict prints the final per-host failure report.
func printVerdict(console *output.Console, verdict *run.Verdict) {
	if verdict.OK() {
		console.Section(fmt.Sprintf("All %d host(s) succeeded in %s.", verdict.Total, verdict.Duration.Round(time.Millisecond)))
		return
	}
	console.Section(fmt.Sprintf("%d of %d host(s) failed:", verdict.Failed, verdict.Total))
	failures := append([]run.Failure(nil), verdict.Failures...)
	sort.SliceStable(failures, func(i, j int) bool { return failures[i].Host < failures[j].Host })
	for _, f := range failures {
		console.HostError(f.Host, f.Reason)
	}
}

func maxLen(names []string) int {
	width := 0
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}
	return width
}

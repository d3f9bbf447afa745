package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opengrill/pitboss"
	"github.com/opengrill/pitboss/ble"
	"github.com/opengrill/pitboss/grills"
	"github.com/opengrill/pitboss/internal/cliconfig"
	"github.com/opengrill/pitboss/internal/logging"
	"github.com/opengrill/pitboss/internal/monitor"
	"github.com/opengrill/pitboss/transport"
	"github.com/opengrill/pitboss/wss"
)

// Connection flags shared by every grill command.
var (
	configPath    string
	transportName string
	grillID       string
	bleAddress    string
	modelName     string
	password      string
	askPassword   bool
	timeoutSecs   int
	logLevel      string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&transportName, "transport", "", "Transport to the grill: ws or ble")
	rootCmd.PersistentFlags().StringVar(&grillID, "grill-id", "", "Grill cloud identifier (ws transport)")
	rootCmd.PersistentFlags().StringVar(&bleAddress, "address", "", "Bluetooth device address (ble transport)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Grill model, e.g. PB850PS2")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Grill control password")
	rootCmd.PersistentFlags().BoolVar(&askPassword, "ask-password", false, "Prompt for the grill password")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 0, "Per-command timeout in seconds (default 30)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log verbosity (debug, info, warn, error)")

	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(setTempCmd)
	rootCmd.AddCommand(probeTempCmd)
	rootCmd.AddCommand(lightCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(primerCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(fsCmd)
	rootCmd.AddCommand(sysinfoCmd)
	rootCmd.AddCommand(pingCmd)
}

// loadConfig reads the config file and lets explicit flags override it.
func loadConfig(cmd *cobra.Command) (*cliconfig.Config, error) {
	cfg, err := cliconfig.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Transport = transportName
	}
	if flags.Changed("grill-id") {
		cfg.GrillID = grillID
	}
	if flags.Changed("address") {
		cfg.Address = bleAddress
	}
	if flags.Changed("model") {
		cfg.Model = modelName
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSeconds = timeoutSecs
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

// resolvePassword returns the grill password from --password, or prompts
// without echo when --ask-password is set.
func resolvePassword() (string, error) {
	if !askPassword {
		return password, nil
	}

	fmt.Fprint(os.Stderr, "Grill password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func buildTransport(cfg *cliconfig.Config) transport.Transport {
	if cfg.Transport == cliconfig.TransportBLE {
		return ble.NewConn(ble.NewSystemAdapter(), cfg.Address)
	}
	return wss.NewConn(cfg.GrillID)
}

// openClient builds a client from config and flags and connects it. The
// caller owns the returned client and must Stop it.
func openClient(cmd *cobra.Command) (*pitboss.PitBoss, *cliconfig.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.LogLevel != "" {
		if err := logging.Initialize(cfg.LogLevel); err != nil {
			return nil, nil, err
		}
	} else if err := logging.InitializeFromEnv(); err != nil {
		return nil, nil, err
	}

	var opts []pitboss.Option
	pw, err := resolvePassword()
	if err != nil {
		return nil, nil, err
	}
	if pw != "" {
		opts = append(opts, pitboss.WithPassword(pw))
	}

	client, err := pitboss.New(buildTransport(cfg), cfg.Model, opts...)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	if err := client.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}

	return client, cfg, nil
}

// withClient connects, runs fn under the configured timeout, and disconnects.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *pitboss.PitBoss) error) error {
	client, cfg, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = client.Stop() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	return fn(ctx, client)
}

// printTable prints a key/value map as an aligned two-column table.
func printTable(values map[string]any) {
	keys := make([]string, 0, len(values))
	width := 0
	for k := range values {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := values[k]
		if v == nil {
			v = "--"
		}
		fmt.Printf("%-*s  %v\n", width, k, v)
	}
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid argument %q (want on or off)", s)
}

// stateCmd fetches the full grill state once.
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Fetch and print the current grill state",
	Long: `Query the grill for its full state and print it as a key/value table.

The state combines the controller's status vector (outputs, error flags,
recipe progress) with the temperature vector (probe, grill, and smoker
readings). Disconnected probes print as '--'.`,
	Example: `  # Over the vendor relay
  pitbossctl state --transport ws --grill-id 1234567890 --model PB850PS2

  # Over Bluetooth
  pitbossctl state --transport ble --address AA:BB:CC:DD:EE:FF --model PBV4PS2`,
	Args: cobra.NoArgs,
	RunE: runState,
}

func runState(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		st, err := client.GetState(ctx)
		if err != nil {
			return fmt.Errorf("failed to get state: %w", err)
		}
		printTable(st)
		return nil
	})
}

// monitorCmd runs the live dashboard.
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch live grill state in a dashboard",
	Long: `Open a live terminal dashboard fed by the grill's status pushes.

The dashboard shows temperatures (actual and target), controller outputs,
error flags, and recipe progress, refreshed as the grill reports. It never
sends control commands. Quit with q or ctrl-c.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	client, _, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = client.Stop() }()

	p := tea.NewProgram(monitor.New(client))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor error: %w", err)
	}
	return nil
}

// setTempCmd sets the grill target temperature.
var setTempCmd = &cobra.Command{
	Use:   "set-temp <temperature>",
	Short: "Set the grill target temperature",
	Long: `Set the grill's target temperature.

Values outside the model's dial range are clamped to it. Models whose dial
ends in a non-numeric position (Smoke, High) are not clamped on that side.`,
	Example: `  pitbossctl set-temp 225`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSetTemp,
}

func runSetTemp(cmd *cobra.Command, args []string) error {
	temp, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid temperature %q: %w", args[0], err)
	}

	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		if _, err := client.SetGrillTemperature(ctx, temp); err != nil {
			return fmt.Errorf("failed to set temperature: %w", err)
		}
		fmt.Printf("Grill target set to %d\n", temp)
		return nil
	})
}

// probeTempCmd sets a meat probe target temperature.
var probeTempCmd = &cobra.Command{
	Use:   "probe-temp <temperature>",
	Short: "Set a meat probe target temperature",
	Long: `Set the target temperature for a meat probe.

Probe 1 is supported on every model; probe 2 only on models whose
controller accepts a second probe target.`,
	Example: `  pitbossctl probe-temp 165
  pitbossctl probe-temp 150 --probe 2`,
	Args: cobra.ExactArgs(1),
	RunE: runProbeTemp,
}

var probeNumber int

func init() {
	probeTempCmd.Flags().IntVar(&probeNumber, "probe", 1, "Meat probe number (1 or 2)")
}

func runProbeTemp(cmd *cobra.Command, args []string) error {
	temp, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid temperature %q: %w", args[0], err)
	}

	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		switch probeNumber {
		case 1:
			_, err = client.SetProbeTemperature(ctx, temp)
		case 2:
			_, err = client.SetProbe2Temperature(ctx, temp)
		default:
			return fmt.Errorf("invalid probe number %d (want 1 or 2)", probeNumber)
		}
		if err != nil {
			return fmt.Errorf("failed to set probe %d target: %w", probeNumber, err)
		}
		fmt.Printf("Probe %d target set to %d\n", probeNumber, temp)
		return nil
	})
}

// lightCmd switches the grill light.
var lightCmd = &cobra.Command{
	Use:   "light on|off",
	Short: "Switch the grill light",
	Long: `Switch the grill light on or off.

On models without a light this is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runLight,
}

func runLight(cmd *cobra.Command, args []string) error {
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}

	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		if on {
			_, err = client.TurnLightOn(ctx)
		} else {
			_, err = client.TurnLightOff(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to switch light: %w", err)
		}
		if !client.Spec.HasLights() {
			fmt.Printf("%s has no light; nothing sent\n", client.Spec.Name)
			return nil
		}
		fmt.Printf("Light %s\n", args[0])
		return nil
	})
}

// offCmd shuts the grill down.
var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn the grill off",
	Args:  cobra.NoArgs,
	RunE:  runOff,
}

func runOff(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		if _, err := client.TurnGrillOff(ctx); err != nil {
			return fmt.Errorf("failed to turn grill off: %w", err)
		}
		fmt.Println("Grill off")
		return nil
	})
}

// primerCmd runs the pellet primer motor.
var primerCmd = &cobra.Command{
	Use:   "primer on|off",
	Short: "Switch the pellet primer motor",
	Long: `Switch the pellet primer motor on or off.

The primer feeds pellets into the burn pot ahead of ignition. Not every
controller has one; models without it reject the command.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrimer,
}

func runPrimer(cmd *cobra.Command, args []string) error {
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}

	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		if on {
			_, err = client.TurnPrimerMotorOn(ctx)
		} else {
			_, err = client.TurnPrimerMotorOff(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to switch primer motor: %w", err)
		}
		fmt.Printf("Primer motor %s\n", args[0])
		return nil
	})
}

// modelsCmd lists the built-in grill definitions.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List supported grill models",
	Long: `List the grill models this client knows how to drive.

Each model names its control board, temperature dial range, and meat probe
count. Use --board to restrict the list to one controller family.`,
	Example: `  pitbossctl models
  pitbossctl models --board LFS`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

var boardFilter string

func init() {
	modelsCmd.Flags().StringVar(&boardFilter, "board", "", "Only list models on this control board")
}

func runModels(cmd *cobra.Command, args []string) error {
	list, err := grills.List(boardFilter)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Printf("No models on board %q\n", boardFilter)
		return nil
	}

	fmt.Printf("%-14s %-6s %-12s %s\n", "MODEL", "BOARD", "TEMPS", "PROBES")
	for _, g := range list {
		extras := ""
		if g.HasLights() {
			extras = "  light"
		}
		fmt.Printf("%-14s %-6s %-12s %d%s\n", g.Name, g.ControlBoard.Name, tempRange(g), g.MeatProbes, extras)
	}
	return nil
}

// tempRange formats a model's dial range; a zero bound is a non-numeric
// dial position.
func tempRange(g *grills.Grill) string {
	lo, hi := "Smoke", "High"
	if g.MinTemp != 0 {
		lo = strconv.Itoa(g.MinTemp)
	}
	if g.MaxTemp != 0 {
		hi = strconv.Itoa(g.MaxTemp)
	}
	return lo + " to " + hi
}

// fsCmd groups controller filesystem access.
var fsCmd = &cobra.Command{
	Use:   "fs",
	Short: "Access files on the controller",
	Long:  `Read and manage files on the controller's flash filesystem.`,
}

var fsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List controller files",
	Args:  cobra.NoArgs,
	RunE:  runFsLs,
}

var fsCatCmd = &cobra.Command{
	Use:     "cat <file>",
	Short:   "Print a controller file",
	Example: `  pitbossctl fs cat conf9.json`,
	Args:    cobra.ExactArgs(1),
	RunE:    runFsCat,
}

var fsRmCmd = &cobra.Command{
	Use:   "rm <file>",
	Short: "Delete a controller file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFsRm,
}

func init() {
	fsCmd.AddCommand(fsLsCmd)
	fsCmd.AddCommand(fsCatCmd)
	fsCmd.AddCommand(fsRmCmd)
}

func runFsLs(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		res, err := client.FS.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list files: %w", err)
		}
		printTable(res)
		return nil
	})
}

func runFsCat(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		data, err := client.FS.ReadFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		_, err = os.Stdout.Write(data)
		return err
	})
}

func runFsRm(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		if err := client.FS.Remove(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to remove %s: %w", args[0], err)
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	})
}

// sysinfoCmd dumps the controller's system description.
var sysinfoCmd = &cobra.Command{
	Use:   "sysinfo",
	Short: "Print controller system information",
	Args:  cobra.NoArgs,
	RunE:  runSysinfo,
}

func runSysinfo(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		info, err := client.Config.Info(ctx)
		if err != nil {
			return fmt.Errorf("failed to get system info: %w", err)
		}
		printTable(info)
		return nil
	})
}

// pingCmd measures one RPC round trip.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure an RPC round trip to the grill",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, client *pitboss.PitBoss) error {
		start := time.Now()
		if _, err := client.Ping(ctx); err != nil {
			return fmt.Errorf("ping failed: %w", err)
		}
		fmt.Printf("pong in %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	})
}

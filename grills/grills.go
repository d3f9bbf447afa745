package grills

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

//go:embed grills.json
var grillsJSON []byte

// ErrUnknownCommand is wrapped by ControlBoard.Command when the slug is not
// in the board's command set.
var ErrUnknownCommand = errors.New("unknown command")

// InvalidGrillError is returned by Get for a model name that is not in the
// built-in registry.
type InvalidGrillError struct {
	Name string
}

func (e *InvalidGrillError) Error() string {
	return fmt.Sprintf("unknown grill name: %s", e.Name)
}

// State holds decoded controller fields keyed by their wire names, such as
// grillTemp or motorState. Temperature values are int, flags are bool, and a
// probe that reports the disconnected sentinel is present with a nil value.
type State map[string]any

// Merge copies every entry of other into s, overwriting existing keys.
func (s State) Merge(other State) {
	for k, v := range other {
		s[k] = v
	}
}

// Copy returns a shallow copy of s.
func (s State) Copy() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Int returns the integer value for key. The second return is false when the
// key is absent or holds a disconnected-probe nil.
func (s State) Int(key string) (int, bool) {
	v, ok := s[key].(int)
	return v, ok
}

// Bool returns the flag value for key, with false when the key is absent.
func (s State) Bool(key string) (bool, bool) {
	v, ok := s[key].(bool)
	return v, ok
}

// Command is one MCU command a control board accepts, either a fixed
// hexadecimal string or a compiled template taking numeric arguments.
type Command struct {
	Name string
	Slug string

	hex  string
	ops  []cmdOp
	argc int
}

// Hex renders the command as the hexadecimal string sent to the controller.
// Fixed commands ignore args; templates consume one argument per placeholder.
func (c *Command) Hex(args ...int) (string, error) {
	if c.hex != "" {
		return c.hex, nil
	}
	if len(args) < c.argc {
		return "", fmt.Errorf("command %s takes %d arguments, got %d", c.Slug, c.argc, len(args))
	}
	var b strings.Builder
	argi := 0
	for _, op := range c.ops {
		switch op.kind {
		case opLiteral:
			b.WriteString(op.text)
		case opDigits:
			b.WriteString(digits3(args[argi]))
			argi++
		case opHexByte:
			b.WriteString(hexByte(args[argi]))
			argi++
		}
	}
	return b.String(), nil
}

// ControlBoard describes one controller family: how to decode its status and
// temperature messages and which commands it accepts.
type ControlBoard struct {
	Name string

	status       *layout
	temperatures *layout
	commands     map[string]*Command
	convertFtoC  bool
}

// ParseStatus decodes a status message. It returns nil when the message does
// not carry this board's status prefix or is malformed.
func (b *ControlBoard) ParseStatus(message string) State {
	return b.status.parse(message, b.convertFtoC)
}

// ParseTemperatures decodes a temperatures message. It returns nil when the
// message does not carry this board's temperatures prefix or is malformed.
func (b *ControlBoard) ParseTemperatures(message string) State {
	return b.temperatures.parse(message, b.convertFtoC)
}

// Command renders the command with the given slug.
func (b *ControlBoard) Command(slug string, args ...int) (string, error) {
	cmd, ok := b.commands[slug]
	if !ok {
		return "", fmt.Errorf("%w: %s (board %s)", ErrUnknownCommand, slug, b.Name)
	}
	return cmd.Hex(args...)
}

// HasCommand reports whether the board accepts the command with this slug.
func (b *ControlBoard) HasCommand(slug string) bool {
	_, ok := b.commands[slug]
	return ok
}

// Commands returns the board's command set sorted by slug.
func (b *ControlBoard) Commands() []*Command {
	out := make([]*Command, 0, len(b.commands))
	for _, c := range b.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Grill is one grill model from the built-in registry.
type Grill struct {
	Name         string
	ControlBoard *ControlBoard

	// MinTemp and MaxTemp are the temperature dial bounds in Fahrenheit.
	// Zero means the bound is non-numeric ("Smoke", "High") and no
	// clamping applies on that side.
	MinTemp int
	MaxTemp int

	MeatProbes int
	hasLights  bool

	// incrementSmall and incrementLarge are the temperature step sizes
	// below and above 250F.
	incrementSmall int
	incrementLarge int
}

// HasLights reports whether the model has a controllable light.
func (g *Grill) HasLights() bool { return g.hasLights }

// TempIncrements returns the temperature step below and above 250F.
func (g *Grill) TempIncrements() (small, large int) {
	return g.incrementSmall, g.incrementLarge
}

// Get returns the grill model with the given name.
func Get(name string) (*Grill, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	g, ok := reg[name]
	if !ok {
		return nil, &InvalidGrillError{Name: name}
	}
	return g, nil
}

// List returns the registered grill models sorted by name. A non-empty
// controlBoard restricts the list to models on that board.
func List(controlBoard string) ([]*Grill, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	out := make([]*Grill, 0, len(reg))
	for _, g := range reg {
		if controlBoard != "" && g.ControlBoard.Name != controlBoard {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var (
	registry     map[string]*Grill
	registryOnce sync.Once
	registryErr  error
)

func loadRegistry() (map[string]*Grill, error) {
	registryOnce.Do(func() {
		registry, registryErr = buildRegistry(grillsJSON)
	})
	return registry, registryErr
}

type commandSpec struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Hexadecimal string `json:"hexadecimal,omitempty"`
	Format      string `json:"format,omitempty"`
}

type boardSpec struct {
	Status              *layoutSpec   `json:"status"`
	Temperatures        *layoutSpec   `json:"temperatures"`
	Commands            []commandSpec `json:"commands"`
	FahrenheitToCelsius bool          `json:"fahrenheit_to_celsius,omitempty"`
}

type grillSpec struct {
	ControlBoard  string `json:"control_board"`
	MinTemp       string `json:"min_temp"`
	MaxTemp       string `json:"max_temp"`
	Lights        int    `json:"lights"`
	MeatProbes    int    `json:"meat_probes"`
	TempIncrement string `json:"temp_increment"`
}

type registryFile struct {
	ControlBoards map[string]*boardSpec `json:"control_boards"`
	Grills        map[string]*grillSpec `json:"grills"`
}

func buildRegistry(raw []byte) (map[string]*Grill, error) {
	var file registryFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing grill registry: %w", err)
	}

	boards := make(map[string]*ControlBoard, len(file.ControlBoards))
	for name, spec := range file.ControlBoards {
		board, err := buildBoard(name, spec)
		if err != nil {
			return nil, fmt.Errorf("control board %s: %w", name, err)
		}
		boards[name] = board
	}

	grills := make(map[string]*Grill, len(file.Grills))
	for name, spec := range file.Grills {
		board, ok := boards[spec.ControlBoard]
		if !ok {
			return nil, fmt.Errorf("grill %s references unknown control board %s", name, spec.ControlBoard)
		}
		small, large, err := parseIncrements(spec.TempIncrement)
		if err != nil {
			return nil, fmt.Errorf("grill %s: %w", name, err)
		}
		grills[name] = &Grill{
			Name:           name,
			ControlBoard:   board,
			MinTemp:        numericTemp(spec.MinTemp),
			MaxTemp:        numericTemp(spec.MaxTemp),
			MeatProbes:     spec.MeatProbes,
			hasLights:      spec.Lights > 0,
			incrementSmall: small,
			incrementLarge: large,
		}
	}
	return grills, nil
}

func buildBoard(name string, spec *boardSpec) (*ControlBoard, error) {
	status, err := compileLayout(spec.Status)
	if err != nil {
		return nil, fmt.Errorf("status layout: %w", err)
	}
	temps, err := compileLayout(spec.Temperatures)
	if err != nil {
		return nil, fmt.Errorf("temperatures layout: %w", err)
	}
	board := &ControlBoard{
		Name:         name,
		status:       status,
		temperatures: temps,
		commands:     make(map[string]*Command, len(spec.Commands)),
		convertFtoC:  spec.FahrenheitToCelsius,
	}
	for _, cs := range spec.Commands {
		if cs.Slug == "" {
			return nil, fmt.Errorf("command %q has no slug", cs.Name)
		}
		if _, dup := board.commands[cs.Slug]; dup {
			return nil, fmt.Errorf("duplicate command slug %s", cs.Slug)
		}
		cmd := &Command{Name: cs.Name, Slug: cs.Slug}
		switch {
		case cs.Hexadecimal != "" && cs.Format != "":
			return nil, fmt.Errorf("command %s has both hexadecimal and format", cs.Slug)
		case cs.Hexadecimal != "":
			cmd.hex = strings.ToLower(cs.Hexadecimal)
		case cs.Format != "":
			ops, argc, err := compileTemplate(strings.ToLower(cs.Format))
			if err != nil {
				return nil, fmt.Errorf("command %s: %w", cs.Slug, err)
			}
			cmd.ops, cmd.argc = ops, argc
		default:
			return nil, fmt.Errorf("command %s has neither hexadecimal nor format", cs.Slug)
		}
		board.commands[cs.Slug] = cmd
	}
	return board, nil
}

// numericTemp parses a dial bound, returning 0 for labels such as "Smoke".
func numericTemp(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseIncrements(s string) (small, large int, err error) {
	if s == "" {
		return 5, 5, nil
	}
	parts := strings.SplitN(s, "/", 2)
	small, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad temp increment %q", s)
	}
	large = small
	if len(parts) == 2 {
		large, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("bad temp increment %q", s)
		}
	}
	return small, large, nil
}

package pitboss

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opengrill/pitboss/codec"
	"github.com/opengrill/pitboss/grills"
	"github.com/opengrill/pitboss/internal/logging"
	"github.com/opengrill/pitboss/transport"
)

// uptimeCacheWindow is how long one PB.GetTime reading keeps serving
// authentication; the rotating codec key only changes every ten seconds.
const uptimeCacheWindow = 5 * time.Second

// StateCallback receives the merged grill state after each telemetry update.
type StateCallback func(state grills.State)

// VDataCallback receives decoded virtual data pushes.
type VDataCallback func(vdata map[string]any)

// Option configures a PitBoss.
type Option func(*PitBoss)

// WithPassword sets the grill password used to authenticate commands.
func WithPassword(password string) Option {
	return func(p *PitBoss) { p.password = password }
}

// PitBoss drives one grill over one transport.
type PitBoss struct {
	// FS and Config expose the controller's filesystem and configuration
	// RPC services over the same connection.
	FS     *FileSystem
	Config *SysConfig

	// Spec is the grill model definition commands and telemetry are
	// interpreted against.
	Spec *grills.Grill

	conn     transport.Transport
	notifier *transport.Notifier

	mu             sync.Mutex
	password       string
	state          grills.State
	stateCallbacks []StateCallback
	vdataCallbacks []VDataCallback

	// uptimeMu serializes PB.GetTime refreshes so a burst of
	// authenticated commands shares one reading.
	uptimeMu      sync.Mutex
	uptime        float64
	uptimeChecked time.Time
	now           func() time.Time
}

// New builds a client for the given grill model on conn. The model selects
// the command set and telemetry layout and cannot be detected over the wire.
func New(conn transport.Transport, model string, opts ...Option) (*PitBoss, error) {
	spec, err := grills.Get(model)
	if err != nil {
		return nil, err
	}
	p := &PitBoss{
		Spec:     spec,
		conn:     conn,
		notifier: transport.NewNotifier(0),
		state:    grills.State{},
		now:      time.Now,
	}
	p.FS = &FileSystem{conn: conn}
	p.Config = &SysConfig{conn: conn}
	for _, opt := range opts {
		opt(p)
	}
	conn.OnState(p.onStateReceived)
	conn.OnVData(p.onVDataReceived)
	return p, nil
}

// Start connects the transport and begins delivering subscriptions.
func (p *PitBoss) Start(ctx context.Context) error {
	p.notifier.Start()
	if err := p.conn.Connect(ctx); err != nil {
		p.notifier.Stop()
		return err
	}
	return nil
}

// Stop disconnects the transport and halts subscription delivery.
func (p *PitBoss) Stop() error {
	err := p.conn.Disconnect()
	p.notifier.Stop()
	return err
}

// IsConnected reports whether the transport link is up.
func (p *PitBoss) IsConnected() bool { return p.conn.IsConnected() }

// SubscribeState registers a callback for merged telemetry updates. Every
// callback receives its own copy of the state.
func (p *PitBoss) SubscribeState(cb StateCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stateCallbacks = append(p.stateCallbacks, cb)
}

// SubscribeVData registers a callback for virtual data updates.
func (p *PitBoss) SubscribeVData(cb VDataCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vdataCallbacks = append(p.vdataCallbacks, cb)
}

// onStateReceived is the transport's push sink. Either slot may carry
// either frame kind, so both parsers run on every non-empty payload; the
// prefix gate ensures at most one accepts.
func (p *PitBoss) onStateReceived(status, temperatures string) {
	logging.Debug("state push",
		zap.String("status", status),
		zap.String("temperatures", temperatures),
	)
	update := grills.State{}
	for _, payload := range []string{status, temperatures} {
		if payload == "" {
			continue
		}
		update.Merge(p.Spec.ControlBoard.ParseStatus(payload))
		update.Merge(p.Spec.ControlBoard.ParseTemperatures(payload))
	}
	if len(update) == 0 {
		logging.Debug("state push not parseable, ignored")
		return
	}

	p.mu.Lock()
	p.state.Merge(update)
	snapshot := p.state.Copy()
	cbs := append([]StateCallback(nil), p.stateCallbacks...)
	p.mu.Unlock()

	p.notifier.Post(func() {
		for _, cb := range cbs {
			cb(snapshot.Copy())
		}
	})
}

func (p *PitBoss) onVDataReceived(payload string) {
	var vdata map[string]any
	if err := json.Unmarshal([]byte(payload), &vdata); err != nil {
		logging.Debug("vdata push not parseable, ignored", zap.Error(err))
		return
	}
	logging.Debug("vdata push", zap.Any("vdata", vdata))

	p.mu.Lock()
	cbs := append([]VDataCallback(nil), p.vdataCallbacks...)
	p.mu.Unlock()

	p.notifier.Post(func() {
		for _, cb := range cbs {
			cb(vdata)
		}
	})
}

// Uptime returns the controller's uptime in seconds via PB.GetTime. The
// reading is cached briefly; the rotating authentication key derived from
// it only changes every ten seconds anyway.
func (p *PitBoss) Uptime(ctx context.Context) (float64, error) {
	p.uptimeMu.Lock()
	defer p.uptimeMu.Unlock()
	now := p.now()
	if !p.uptimeChecked.IsZero() && now.Sub(p.uptimeChecked) <= uptimeCacheWindow {
		return p.uptime, nil
	}
	res, err := p.conn.SendCommand(ctx, "PB.GetTime", nil)
	if err != nil {
		return 0, fmt.Errorf("reading uptime: %w", err)
	}
	p.uptime, _ = res["time"].(float64)
	p.uptimeChecked = now
	return p.uptime, nil
}

// authenticate stamps the password proof onto params when a password is
// set. The params map must be owned by the caller.
func (p *PitBoss) authenticate(ctx context.Context, params map[string]any) (map[string]any, error) {
	p.mu.Lock()
	password := p.password
	p.mu.Unlock()
	if password == "" {
		return params, nil
	}
	uptime, err := p.Uptime(ctx)
	if err != nil {
		return nil, err
	}
	proof := codec.Default().Timed(uptime).Encode([]byte(password))
	params["psw"] = hex.EncodeToString(proof)
	return params, nil
}

func (p *PitBoss) sendHexCommand(ctx context.Context, command string) (map[string]any, error) {
	params, err := p.authenticate(ctx, map[string]any{"command": command})
	if err != nil {
		return nil, err
	}
	return p.conn.SendCommand(ctx, "PB.SendMCUCommand", params)
}

func (p *PitBoss) sendSlug(ctx context.Context, slug string, args ...int) (map[string]any, error) {
	command, err := p.Spec.ControlBoard.Command(slug, args...)
	if err != nil {
		return nil, err
	}
	return p.sendHexCommand(ctx, command)
}

// SetGrillTemperature sets the target grill temperature, clamped to the
// model's dial bounds when it has numeric ones.
func (p *PitBoss) SetGrillTemperature(ctx context.Context, temp int) (map[string]any, error) {
	if p.Spec.MaxTemp != 0 && temp > p.Spec.MaxTemp {
		temp = p.Spec.MaxTemp
	}
	if p.Spec.MinTemp != 0 && temp < p.Spec.MinTemp {
		temp = p.Spec.MinTemp
	}
	return p.sendSlug(ctx, "set-temperature", temp)
}

// SetProbeTemperature sets the target temperature for probe 1.
func (p *PitBoss) SetProbeTemperature(ctx context.Context, temp int) (map[string]any, error) {
	return p.sendSlug(ctx, "set-probe-1-temperature", temp)
}

// SetProbe2Temperature sets the target temperature for probe 2. Boards
// without a second probe target return ErrUnsupportedOperation.
func (p *PitBoss) SetProbe2Temperature(ctx context.Context, temp int) (map[string]any, error) {
	const slug = "set-probe-2-temperature"
	if !p.Spec.ControlBoard.HasCommand(slug) {
		return nil, ErrUnsupportedOperation
	}
	return p.sendSlug(ctx, slug, temp)
}

// TurnLightOn turns the light on. Models without a light return an empty
// result without touching the grill.
func (p *PitBoss) TurnLightOn(ctx context.Context) (map[string]any, error) {
	if !p.Spec.HasLights() {
		return map[string]any{}, nil
	}
	return p.sendSlug(ctx, "turn-light-on")
}

// TurnLightOff turns the light off. Models without a light return an empty
// result without touching the grill.
func (p *PitBoss) TurnLightOff(ctx context.Context) (map[string]any, error) {
	if !p.Spec.HasLights() {
		return map[string]any{}, nil
	}
	return p.sendSlug(ctx, "turn-light-off")
}

// TurnGrillOff shuts the grill down.
func (p *PitBoss) TurnGrillOff(ctx context.Context) (map[string]any, error) {
	return p.sendSlug(ctx, "turn-off")
}

// TurnPrimerMotorOn runs the pellet primer motor.
func (p *PitBoss) TurnPrimerMotorOn(ctx context.Context) (map[string]any, error) {
	return p.sendSlug(ctx, "turn-primer-motor-on")
}

// TurnPrimerMotorOff stops the pellet primer motor.
func (p *PitBoss) TurnPrimerMotorOff(ctx context.Context) (map[string]any, error) {
	return p.sendSlug(ctx, "turn-primer-motor-off")
}

// GetState polls the controller for its current state. The response carries
// a status frame under sc_11 and a temperatures frame under sc_12; both are
// decoded and merged. The retained push state is not touched.
func (p *PitBoss) GetState(ctx context.Context) (grills.State, error) {
	params, err := p.authenticate(ctx, map[string]any{})
	if err != nil {
		return nil, err
	}
	res, err := p.conn.SendCommand(ctx, "PB.GetState", params)
	if err != nil {
		return nil, err
	}
	state := grills.State{}
	if payload, ok := res["sc_11"].(string); ok {
		state.Merge(p.Spec.ControlBoard.ParseStatus(payload))
	}
	if payload, ok := res["sc_12"].(string); ok {
		state.Merge(p.Spec.ControlBoard.ParseTemperatures(payload))
	}
	return state, nil
}

// GetFirmwareVersion returns the firmware version installed on the grill.
func (p *PitBoss) GetFirmwareVersion(ctx context.Context) (map[string]any, error) {
	return p.conn.SendCommand(ctx, "PB.GetFirmwareVersion", nil)
}

// SetGrillPassword changes the grill password. The new password travels
// encoded under the stock key while the call itself authenticates with the
// old password; on success the client switches to the new one.
func (p *PitBoss) SetGrillPassword(ctx context.Context, newPassword string) error {
	encoded := hex.EncodeToString(codec.Default().Encode([]byte(newPassword)))
	params, err := p.authenticate(ctx, map[string]any{"newPassword": encoded})
	if err != nil {
		return err
	}
	if _, err := p.conn.SendCommand(ctx, "PB.SetDevicePassword", params); err != nil {
		return err
	}
	p.mu.Lock()
	p.password = newPassword
	p.mu.Unlock()
	return nil
}

// SetMCUUpdateFrequency sets how often the control board reports state, in
// seconds.
func (p *PitBoss) SetMCUUpdateFrequency(ctx context.Context, frequency int) (map[string]any, error) {
	return p.conn.SendCommand(ctx, "PB.SetMCU_UpdateFrequency", map[string]any{"frequency": frequency})
}

// SetWiFiUpdateFrequency sets how often the wifi module pushes state while
// clients are connected (fast) and while idle (slow), in seconds.
func (p *PitBoss) SetWiFiUpdateFrequency(ctx context.Context, fast, slow int) (map[string]any, error) {
	params, err := p.authenticate(ctx, map[string]any{"slow": slow, "fast": fast})
	if err != nil {
		return nil, err
	}
	return p.conn.SendCommand(ctx, "PB.SetWifiUpdateFrequency", params)
}

// SetVirtualData stores app-defined data on the controller.
func (p *PitBoss) SetVirtualData(ctx context.Context, data map[string]any) (map[string]any, error) {
	params := make(map[string]any, len(data)+1)
	for k, v := range data {
		params[k] = v
	}
	params, err := p.authenticate(ctx, params)
	if err != nil {
		return nil, err
	}
	return p.conn.SendCommand(ctx, "PB.SetVirtualData", params)
}

// GetVirtualData reads back app-defined data stored on the controller.
func (p *PitBoss) GetVirtualData(ctx context.Context) (map[string]any, error) {
	params, err := p.authenticate(ctx, map[string]any{})
	if err != nil {
		return nil, err
	}
	return p.conn.SendCommand(ctx, "PB.GetVirtualData", params)
}

// Ping checks the RPC channel end to end.
func (p *PitBoss) Ping(ctx context.Context) (map[string]any, error) {
	return p.conn.SendCommand(ctx, "RPC.Ping", nil)
}

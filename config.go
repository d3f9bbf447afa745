package pitboss

import (
	"context"

	"github.com/opengrill/pitboss/transport"
)

// SysConfig wraps the controller's Mongoose OS configuration RPC service.
//
// https://mongoose-os.com/docs/mongoose-os/api/rpc/rpc-service-config.md
type SysConfig struct {
	conn transport.Transport
}

// Info returns system information: firmware build, chip, memory, uptime.
func (c *SysConfig) Info(ctx context.Context) (map[string]any, error) {
	return c.conn.SendCommand(ctx, "Sys.GetInfo", nil)
}

// Get retrieves a configuration subtree. Key is a dotted path such as
// "wifi.sta.ssid"; an empty key returns the whole configuration.
func (c *SysConfig) Get(ctx context.Context, key string) (map[string]any, error) {
	params := map[string]any{}
	if key != "" {
		params["key"] = key
	}
	return c.conn.SendCommand(ctx, "Config.Get", params)
}

// Set applies configuration values, nested the same way the device
// configuration tree is.
func (c *SysConfig) Set(ctx context.Context, values map[string]any) (map[string]any, error) {
	return c.conn.SendCommand(ctx, "Config.Set", map[string]any{"config": values})
}

// Save persists the running configuration to flash. With reboot set the
// device restarts and never answers, so the call goes out fire-and-forget.
func (c *SysConfig) Save(ctx context.Context, reboot bool) error {
	params := map[string]any{"reboot": reboot}
	if reboot {
		return c.conn.SendCommandWithoutAnswer(ctx, "Config.Save", params)
	}
	_, err := c.conn.SendCommand(ctx, "Config.Save", params)
	return err
}

// SetWiFiCredentials points the device's wifi station at ssid.
func (c *SysConfig) SetWiFiCredentials(ctx context.Context, ssid, password string) (map[string]any, error) {
	return c.conn.SendCommand(ctx, "Config.Set", wifiParams(ssid, password))
}

// SetWiFiSSID sets only the station SSID.
func (c *SysConfig) SetWiFiSSID(ctx context.Context, ssid string) (map[string]any, error) {
	return c.conn.SendCommand(ctx, "Config.Set", wifiParams(ssid, ""))
}

// SetWiFiPassword sets only the station password.
func (c *SysConfig) SetWiFiPassword(ctx context.Context, password string) (map[string]any, error) {
	return c.conn.SendCommand(ctx, "Config.Set", wifiParams("", password))
}

func wifiParams(ssid, password string) map[string]any {
	sta := map[string]any{"enable": true}
	if ssid != "" {
		sta["ssid"] = ssid
	}
	if password != "" {
		sta["pass"] = password
	}
	return map[string]any{"config": map[string]any{"wifi": map[string]any{"sta": sta}}}
}

package ipc

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"syscall"
	"time"
)

// ErrDaemonNotRunning reports that no daemon answers on the socket.
var ErrDaemonNotRunning = errors.New("szhimatar daemon is not running")

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path. Dial failures
// that indicate an absent daemon (no socket file, nobody listening) map to
// ErrDaemonNotRunning so callers can suggest starting one.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		if isDaemonDown(err) {
			return nil, fmt.Errorf("%w (socket %s)", ErrDaemonNotRunning, path)
		}
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

func isDaemonDown(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENOENT)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// StartRender submits a render job to the daemon.
func (c *Client) StartRender(req StartRenderRequest) (*StartRenderResponse, error) {
	var resp StartRenderResponse
	if err := c.client.Call("Szhimatar.StartRender", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopRender stops one active render.
func (c *Client) StopRender(jobID string) (*StopRenderResponse, error) {
	var resp StopRenderResponse
	if err := c.client.Call("Szhimatar.StopRender", StopRenderRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopAllRenders stops every active render.
func (c *Client) StopAllRenders() (*StopAllRendersResponse, error) {
	var resp StopAllRendersResponse
	if err := c.client.Call("Szhimatar.StopAllRenders", StopAllRendersRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActiveRenders lists live jobs.
func (c *Client) ActiveRenders() (*ActiveRendersResponse, error) {
	var resp ActiveRendersResponse
	if err := c.client.Call("Szhimatar.ActiveRenders", ActiveRendersRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Szhimatar.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventsSince fetches render events newer than seq.
func (c *Client) EventsSince(seq uint64) (*EventsSinceResponse, error) {
	var resp EventsSinceResponse
	if err := c.client.Call("Szhimatar.EventsSince", EventsSinceRequest{Seq: seq}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Probe inspects a media file through the daemon.
func (c *Client) Probe(path string) (*ProbeResponse, error) {
	var resp ProbeResponse
	if err := c.client.Call("Szhimatar.Probe", ProbeRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPresets returns every stored preset.
func (c *Client) ListPresets() (*ListPresetsResponse, error) {
	var resp ListPresetsResponse
	if err := c.client.Call("Szhimatar.ListPresets", ListPresetsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPreset loads one preset by name.
func (c *Client) GetPreset(name string) (*GetPresetResponse, error) {
	var resp GetPresetResponse
	if err := c.client.Call("Szhimatar.GetPreset", GetPresetRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SavePreset writes a preset through the daemon.
func (c *Client) SavePreset(preset Preset) (*SavePresetResponse, error) {
	var resp SavePresetResponse
	if err := c.client.Call("Szhimatar.SavePreset", SavePresetRequest{Preset: preset}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeletePreset removes a preset through the daemon.
func (c *Client) DeletePreset(name string) (*DeletePresetResponse, error) {
	var resp DeletePresetResponse
	if err := c.client.Call("Szhimatar.DeletePreset", DeletePresetRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatsSummary fetches aggregate counters plus recent history rows.
func (c *Client) StatsSummary(recentLimit int) (*StatsSummaryResponse, error) {
	var resp StatsSummaryResponse
	if err := c.client.Call("Szhimatar.StatsSummary", StatsSummaryRequest{RecentLimit: recentLimit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatsExport fetches the legacy JSON export document.
func (c *Client) StatsExport() (*StatsExportResponse, error) {
	var resp StatsExportResponse
	if err := c.client.Call("Szhimatar.StatsExport", StatsExportRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatsClear empties the render history.
func (c *Client) StatsClear() (*StatsClearResponse, error) {
	var resp StatsClearResponse
	if err := c.client.Call("Szhimatar.StatsClear", StatsClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns structured log events from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Szhimatar.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Szhimatar.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

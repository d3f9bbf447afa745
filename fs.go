package pitboss

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/opengrill/pitboss/transport"
)

// fsChunkLen is how many bytes one FS.Get round-trip requests. The RPC
// channel is slow over BLE, so chunks stay small.
const fsChunkLen = 512

// FileSystem wraps the controller's Mongoose OS filesystem RPC service.
//
// https://mongoose-os.com/docs/mongoose-os/api/rpc/rpc-service-fs.md
type FileSystem struct {
	conn transport.Transport
}

// List returns the controller's file listing response.
func (f *FileSystem) List(ctx context.Context) (map[string]any, error) {
	return f.conn.SendCommand(ctx, "FS.List", nil)
}

// ReadFile fetches a file's content in fsChunkLen pieces until the device
// reports nothing left.
func (f *FileSystem) ReadFile(ctx context.Context, filename string) ([]byte, error) {
	var content []byte
	for offset := 0; ; offset += fsChunkLen {
		res, err := f.conn.SendCommand(ctx, "FS.Get", map[string]any{
			"filename": filename,
			"offset":   offset,
			"len":      fsChunkLen,
		})
		if err != nil {
			return nil, err
		}
		data, _ := res["data"].(string)
		chunk, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s at offset %d: %w", filename, offset, err)
		}
		content = append(content, chunk...)
		if left, _ := res["left"].(float64); left == 0 {
			return content, nil
		}
	}
}

// WriteFile replaces a file's content, or extends it when appendTo is set.
func (f *FileSystem) WriteFile(ctx context.Context, filename string, data []byte, appendTo bool) error {
	_, err := f.conn.SendCommand(ctx, "FS.Put", map[string]any{
		"filename": filename,
		"data":     base64.StdEncoding.EncodeToString(data),
		"append":   appendTo,
	})
	return err
}

// Rename moves a file.
func (f *FileSystem) Rename(ctx context.Context, src, dst string) error {
	_, err := f.conn.SendCommand(ctx, "FS.Rename", map[string]any{"src": src, "dst": dst})
	return err
}

// Remove deletes a file.
func (f *FileSystem) Remove(ctx context.Context, filename string) error {
	_, err := f.conn.SendCommand(ctx, "FS.Remove", map[string]any{"filename": filename})
	return err
}

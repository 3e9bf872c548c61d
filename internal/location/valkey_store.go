package location

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// DefaultFixTTL bounds how long a fix is trusted after the last report.
const DefaultFixTTL = 6 * time.Hour

// ValkeyStore persists fixes as JSON strings with a TTL.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore creates a store on an existing client.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "sunsafe:fix"
	}
	if ttl <= 0 {
		ttl = DefaultFixTTL
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

// NewValkeyClient builds a client from either a bare host:port or a
// redis:// / valkey:// URL and verifies it with PING.
func NewValkeyClient(ctx context.Context, addr string) (valkey.Client, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing valkey url: %w", err)
		}
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("creating valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging valkey: %w", err)
	}
	return client, nil
}

// Save stores the fix under the device key, refreshing the TTL.
func (s *ValkeyStore) Save(ctx context.Context, fix Fix) error {
	payload, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("encoding fix: %w", err)
	}
	cmd := s.client.B().Set().Key(s.key(fix.DeviceID)).Value(string(payload)).Ex(s.ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("saving fix: %w", err)
	}
	return nil
}

// Latest loads the fix for the device.
func (s *ValkeyStore) Latest(ctx context.Context, deviceID string) (*Fix, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(deviceID)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNoFix
		}
		return nil, fmt.Errorf("loading fix: %w", err)
	}

	var fix Fix
	if err := json.Unmarshal([]byte(payload), &fix); err != nil {
		return nil, fmt.Errorf("decoding fix: %w", err)
	}
	return &fix, nil
}

// Delete removes the device key.
func (s *ValkeyStore) Delete(ctx context.Context, deviceID string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.key(deviceID)).Build()).Error(); err != nil {
		return fmt.Errorf("deleting fix: %w", err)
	}
	return nil
}

func (s *ValkeyStore) key(deviceID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, deviceID)
}

var _ Store = (*ValkeyStore)(nil)

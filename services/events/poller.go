package eventsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/trezcool/classboard/core"
)

// FingerprintFunc summarizes the current state of the board. Equal states give equal fingerprints.
type FingerprintFunc func(ctx context.Context) (string, error)

// Fingerprint hashes the JSON encoding of vals.
func Fingerprint(vals ...interface{}) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, v := range vals {
		if err := enc.Encode(v); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Poller compensates for missed notifications: every interval it takes a fingerprint of the board
// and publishes a refresh event when it differs from the previous one.
type Poller struct {
	interval    time.Duration
	fingerprint FingerprintFunc
	hub         *Hub
	log         core.Logger
}

// DefaultPollInterval replaces a zero or negative poll interval.
const DefaultPollInterval = 5 * time.Second

func NewPoller(interval time.Duration, fingerprint FingerprintFunc, hub *Hub, log core.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{interval: interval, fingerprint: fingerprint, hub: hub, log: log}
}

// Run polls until ctx is done. The first fingerprint is the baseline and publishes nothing.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	last, err := p.fingerprint(ctx)
	if err != nil {
		p.log.Warn("polling board", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fp, err := p.fingerprint(ctx)
			if err != nil {
				p.log.Warn("polling board", err)
				continue
			}
			if fp != last {
				last = fp
				p.hub.Publish(NewEvent(KindRefresh, "poll"))
			}
		}
	}
}

package input

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

// DemoGenerator appends synthetic sshd traffic to a MemorySource: ordinary
// logins from a large pool, and password-guessing bursts from a few attackers.
type DemoGenerator struct {
	source        *MemorySource
	rate          int
	attackPercent int
	rng           *rand.Rand
	generated     atomic.Uint64

	normalIPs   []string
	attackerIPs []string
	users       []string
	guessed     []string
}

type DemoConfig struct {
	// Rate is entries per second.
	Rate          int
	AttackPercent int
	Seed          int64
}

func DefaultDemoConfig() DemoConfig {
	return DemoConfig{
		Rate:          20,
		AttackPercent: 40,
	}
}

func NewDemoGenerator(source *MemorySource, config DemoConfig) *DemoGenerator {
	if config.Rate <= 0 {
		config.Rate = 20
	}
	if config.AttackPercent < 0 || config.AttackPercent > 100 {
		config.AttackPercent = 40
	}
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(config.Seed))

	return &DemoGenerator{
		source:        source,
		rate:          config.Rate,
		attackPercent: config.AttackPercent,
		rng:           rng,
		normalIPs: generateIPPool(rng, 200, []string{
			"192.168.", "10.0.", "10.1.", "172.16.", "100.64.",
		}),
		attackerIPs: generateIPPool(rng, 6, []string{
			"45.33.", "185.220.", "89.234.", "91.121.", "51.15.", "209.141.",
		}),
		users:   []string{"deploy", "alice", "bob", "ci", "backup"},
		guessed: []string{"root", "admin", "oracle", "test", "ubuntu", "pi", "postgres", "git"},
	}
}

func generateIPPool(rng *rand.Rand, n int, prefixes []string) []string {
	pool := make([]string, n)
	for i := range pool {
		prefix := prefixes[rng.Intn(len(prefixes))]
		pool[i] = fmt.Sprintf("%s%d.%d", prefix, rng.Intn(256), 1+rng.Intn(254))
	}
	return pool
}

// Run appends entries until ctx is cancelled.
func (g *DemoGenerator) Run(ctx context.Context) {
	interval := time.Second / time.Duration(g.rate)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Debug().Int("rate", g.rate).Int("attack_percent", g.attackPercent).Msg("Demo generator running")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Uint64("generated", g.generated.Load()).Msg("Demo generator stopped")
			return
		case <-ticker.C:
			g.source.Append(g.Generate())
		}
	}
}

// Generate builds one synthetic entry.
func (g *DemoGenerator) Generate() *domain.LogEntry {
	g.generated.Add(1)

	port := 30000 + g.rng.Intn(30000)
	var msg string
	if g.rng.Intn(100) < g.attackPercent {
		ip := g.attackerIPs[g.rng.Intn(len(g.attackerIPs))]
		user := g.guessed[g.rng.Intn(len(g.guessed))]
		if user == "root" {
			msg = fmt.Sprintf("Failed password for root from %s port %d ssh2", ip, port)
		} else {
			msg = fmt.Sprintf("Failed password for invalid user %s from %s port %d ssh2", user, ip, port)
		}
	} else {
		ip := g.normalIPs[g.rng.Intn(len(g.normalIPs))]
		user := g.users[g.rng.Intn(len(g.users))]
		switch g.rng.Intn(4) {
		case 0:
			msg = fmt.Sprintf("Accepted password for %s from %s port %d ssh2", user, ip, port)
		case 1:
			msg = fmt.Sprintf("Accepted publickey for %s from %s port %d ssh2: ED25519 SHA256:%08x", user, ip, port, g.rng.Uint32())
		case 2:
			msg = fmt.Sprintf("Connection closed by %s port %d [preauth]", ip, port)
		default:
			msg = fmt.Sprintf("pam_unix(sshd:session): session opened for user %s(uid=1000) by (uid=0)", user)
		}
	}

	entry := domain.NewLogEntry(time.Now(), msg)
	entry.Hostname = "demo"
	entry.Identifier = "sshd"
	entry.PID = 1000 + g.rng.Intn(9000)
	return entry
}

func (g *DemoGenerator) Generated() uint64 {
	return g.generated.Load()
}

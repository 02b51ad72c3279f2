package access

import (
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Gate is a fixed allow-list of wallet identities
type Gate struct {
	enabled bool
	allowed map[string]struct{}
}

type allowListFile struct {
	AllowList []string `yaml:"allow_list"`
}

// NewGate builds the set from identities. A disabled gate admits everyone.
func NewGate(enabled bool, identities []string) *Gate {
	g := &Gate{
		enabled: enabled,
		allowed: make(map[string]struct{}, len(identities)),
	}
	for _, identity := range identities {
		identity = strings.TrimSpace(identity)
		if identity == "" {
			continue
		}
		if _, err := solana.PublicKeyFromBase58(identity); err != nil {
			log.Warnf("[ACCESS] Skipping invalid identity %q: %s", identity, err.Error())
			continue
		}
		g.allowed[identity] = struct{}{}
	}
	log.Debugf("[ACCESS] Loaded %d identities, enabled=%v", len(g.allowed), enabled)
	return g
}

// LoadGate merges the inline list with the entries of an optional YAML file
func LoadGate(enabled bool, identities []string, file string) (*Gate, error) {
	if file == "" {
		return NewGate(enabled, identities), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read allow list %q: %w", file, err)
	}
	var parsed allowListFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse allow list %q: %w", file, err)
	}

	all := make([]string, 0, len(identities)+len(parsed.AllowList))
	all = append(all, identities...)
	all = append(all, parsed.AllowList...)
	return NewGate(enabled, all), nil
}

// IsAllowed admits everyone on a disabled gate. A nil gate admits no one.
func (g *Gate) IsAllowed(identity string) bool {
	if g == nil {
		return false
	}
	if !g.enabled {
		return true
	}
	_, ok := g.allowed[strings.TrimSpace(identity)]
	return ok
}

func (g *Gate) Len() int {
	if g == nil {
		return 0
	}
	return len(g.allowed)
}

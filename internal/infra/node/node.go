package node

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

// Node describes this remote: the build it runs and an instance id that
// survives restarts on the same host.
type Node struct {
	ID         string
	Hostname   string
	Version    string
	CommitHash string
}

var Version = "development"
var CommitHash = "unknown"

var (
	current     *Node
	currentOnce sync.Once
)

func GetNodeInfo() *Node {
	currentOnce.Do(func() {
		hostname := getHostname()
		current = &Node{
			ID:         InstanceID(hostname),
			Hostname:   hostname,
			Version:    Version,
			CommitHash: CommitHash,
		}
	})
	n := *current
	return &n
}

// InstanceID derives a name-based UUID so the same host always reports
// the same id.
func InstanceID(hostname string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("lumen-remote."+hostname)).String()
}

// ClientID is a short broker client id built from the instance id.
func (n *Node) ClientID() string {
	return "lumen-remote-" + n.ID[:8]
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "localhost"
	}
	return hostname
}

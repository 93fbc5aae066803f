package opencode

import (
	"net"
	"strconv"
	"time"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

const (
	portPoolMin = 4100
	portPoolMax = 4199
)

// portPool tracks which ports in [portPoolMin, portPoolMax] are currently
// assigned to a running project. Freed ports are reused before any unused
// port is handed out, so the pool tends toward the low end of the range.
type portPool struct {
	inUse map[int]bool
}

func newPortPool() *portPool {
	return &portPool{inUse: map[int]bool{}}
}

// reserve marks a specific port as in-use, for restoring pool state from
// persisted projects on startup.
func (p *portPool) reserve(port int) {
	if port > 0 {
		p.inUse[port] = true
	}
}

func (p *portPool) release(port int) {
	delete(p.inUse, port)
}

// allocate returns the lowest free port in the pool that also isn't
// currently answering on the loopback interface (a stale manager record
// could have forgotten about it).
func (p *portPool) allocate() (int, error) {
	for port := portPoolMin; port <= portPoolMax; port++ {
		if p.inUse[port] {
			continue
		}
		if probeListening(port) {
			continue
		}
		p.inUse[port] = true
		return port, nil
	}
	return 0, apperr.New(apperr.KindState, "no free ports in the opencode pool", map[string]any{"min": portPoolMin, "max": portPoolMax})
}

func probeListening(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 150*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

package embed

import "sync"

// InitializedAttr marks a container that already has a player bound to it.
const InitializedAttr = "data-player-initialized"

// Container is the page element a player is mounted into.
type Container interface {
	// Key identifies the container on its page.
	Key() string
	Data(attr string) (string, bool)
	SetData(attr, value string)
	RemoveData(attr string)
}

// Node is an in-memory Container mirroring a browser element's data attributes.
type Node struct {
	key string

	mu   sync.RWMutex
	data map[string]string
}

// NewNode creates a container with the given key.
func NewNode(key string) *Node {
	return &Node{
		key:  key,
		data: make(map[string]string),
	}
}

// Key returns the container key.
func (n *Node) Key() string {
	return n.key
}

// Data returns a data attribute.
func (n *Node) Data(attr string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.data[attr]
	return v, ok
}

// SetData sets a data attribute.
func (n *Node) SetData(attr, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.data[attr] = value
}

// RemoveData removes a data attribute.
func (n *Node) RemoveData(attr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.data, attr)
}

func initialized(c Container) bool {
	v, ok := c.Data(InitializedAttr)
	return ok && v == "true"
}

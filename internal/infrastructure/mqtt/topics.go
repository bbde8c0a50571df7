package mqtt

import "fmt"

// TopicPrefix is the base of every node housekeeping topic. Application
// topics (the status and command topics) come from configuration and are
// not built here.
const TopicPrefix = "touchnode"

// Topics provides builders for node housekeeping topics.
//
//	mqtt.Topics{}.NodeHealth("kitchen-panel")
//	// Returns: "touchnode/kitchen-panel/health"
type Topics struct{}

// NodeStatus returns the retained online/offline topic (also the LWT topic).
//
// Example: touchnode/kitchen-panel/status
func (Topics) NodeStatus(nodeID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, nodeID)
}

// NodeHealth returns the retained periodic health topic.
//
// Example: touchnode/kitchen-panel/health
func (Topics) NodeHealth(nodeID string) string {
	return fmt.Sprintf("%s/%s/health", TopicPrefix, nodeID)
}

// AllNodeStatus matches every node's status topic.
func (Topics) AllNodeStatus() string {
	return TopicPrefix + "/+/status"
}

// AllNodeHealth matches every node's health topic.
func (Topics) AllNodeHealth() string {
	return TopicPrefix + "/+/health"
}

package types

import "fmt"

const (
	// Namespace prefixes every desktop2mqtt topic.
	Namespace = "desktop2mqtt"
	// DiscoveryPrefix is Home Assistant discovery prefix.
	DiscoveryPrefix = "homeassistant"
)

// ReservedSubtopics are subtopics of the state topic owned by the gateway and workers.
var ReservedSubtopics = []string{"availability", "set", "notify"}

// Topics builds all topic names for one entity id.
// It should be created once by NewTopics() and shared.
type Topics struct {
	entityID string
}

// NewTopics creates Topics for entityID.
func NewTopics(entityID string) Topics {
	return Topics{entityID: entityID}
}

// EntityID returns entity id used to build topics.
func (t Topics) EntityID() string {
	return t.entityID
}

// State is where DesktopState is published.
func (t Topics) State() string {
	return fmt.Sprintf("%s/%s", Namespace, t.entityID)
}

// Availability is where "online"/"offline" is published.
func (t Topics) Availability() string {
	return t.State() + "/availability"
}

// BacklightSet receives backlight commands.
func (t Topics) BacklightSet() string {
	return t.State() + "/set"
}

// Notify receives desktop notifications.
func (t Topics) Notify() string {
	return t.State() + "/notify"
}

// Command receives triggers for custom command with given slug.
func (t Topics) Command(slug string) string {
	return t.State() + "/" + slug
}

// Discovery returns Home Assistant config topic for component (sensor, light, ...) and object id.
func (t Topics) Discovery(component, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", DiscoveryPrefix, component, t.entityID, objectID)
}
